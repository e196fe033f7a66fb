package engine

import "github.com/aleka07/cloudguard/pkg/model"

// history is a fixed-capacity ring of samples. Once full, each push evicts
// the oldest point. Callers synchronize access.
type history struct {
	items []model.HistoryPoint
	head  int // index of next write position
	size  int // current fill level
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{items: make([]model.HistoryPoint, capacity)}
}

func (h *history) push(p model.HistoryPoint) {
	h.items[h.head] = p
	h.head = (h.head + 1) % len(h.items)
	if h.size < len(h.items) {
		h.size++
	}
}

func (h *history) len() int { return h.size }

// last returns the newest n points oldest first, or all of them when n <= 0
// or n exceeds the fill level.
func (h *history) last(n int) []model.HistoryPoint {
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]model.HistoryPoint, n)
	start := h.head - n
	if start < 0 {
		start += len(h.items)
	}
	for i := range out {
		out[i] = h.items[(start+i)%len(h.items)]
	}
	return out
}

func (h *history) samples(n int) []model.MetricSample {
	return model.Samples(h.last(n))
}
