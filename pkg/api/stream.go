package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/events"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamEvents handles GET /api/v1/events/ws?types=alert.*,metrics.updated&twinId=...
// It upgrades to WebSocket and forwards matching engine events as JSON.
func (a *API) StreamEvents(w http.ResponseWriter, r *http.Request) {
	patterns := []events.Type{"*"}
	if raw := r.URL.Query().Get("types"); raw != "" {
		patterns = patterns[:0]
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, events.Type(p))
			}
		}
	}
	twinID := r.URL.Query().Get("twinId")

	// Subscribe before upgrading so nothing published after the handshake is missed.
	updates, unsubscribe := a.Engine.Subscribe(patterns...)
	defer unsubscribe()

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("Event stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	a.log.Debug("Event stream connected", zap.String("remote", r.RemoteAddr), zap.String("twin_id", twinID))

	// Reader detects client close; inbound messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case ev, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"), time.Now().Add(writeWait))
				return
			}
			if twinID != "" && ev.TwinID != twinID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				a.log.Debug("Event stream write failed", zap.Error(err))
				return
			}
		}
	}
}
