package alert

import (
	"fmt"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Mode selects how repeated alerts for a sustained condition are handled.
type Mode string

const (
	// ModeTransition emits only when a metric's level rises. Returning to
	// normal re-arms the metric.
	ModeTransition Mode = "transition"
	// ModeAlways emits on every evaluation that crosses a threshold.
	ModeAlways Mode = "always"
)

// ParseMode parses a configured debounce mode. Empty means ModeTransition.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTransition:
		return ModeTransition, nil
	case ModeAlways:
		return ModeAlways, nil
	}
	return "", fmt.Errorf("unknown alert debounce mode '%s'", s)
}

func rank(l model.AlertLevel) int {
	switch l {
	case model.AlertCritical:
		return 2
	case model.AlertWarning:
		return 1
	}
	return 0
}

// Debouncer tracks the last level seen per metric for one twin. It is not
// safe for concurrent use.
type Debouncer struct {
	mode Mode
	last map[model.Metric]model.AlertLevel
}

// NewDebouncer creates a debouncer for mode.
func NewDebouncer(mode Mode) *Debouncer {
	return &Debouncer{mode: mode, last: make(map[model.Metric]model.AlertLevel)}
}

// Filter takes the full set of events raised for one sample and returns the
// ones that should be published. Metrics absent from raised are treated as
// back to normal.
func (d *Debouncer) Filter(raised []model.AlertEvent) []model.AlertEvent {
	current := make(map[model.Metric]model.AlertLevel, len(raised))
	var out []model.AlertEvent
	for _, ev := range raised {
		current[ev.Metric] = ev.Level
		if d.mode == ModeAlways || rank(ev.Level) > rank(d.last[ev.Metric]) {
			out = append(out, ev)
		}
	}
	d.last = current
	return out
}
