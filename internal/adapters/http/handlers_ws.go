package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studio/internal/adapters/changefeed"
	"studio/internal/application/projections"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// upgrader accepts same-origin browsers only (gorilla's default origin check).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// scheduleMessage is what each push carries: the topic that changed and the
// viewer's whole schedule, so clients never merge deltas.
type scheduleMessage struct {
	Type     string                     `json:"type"`
	Topic    changefeed.Topic           `json:"topic,omitempty"`
	Schedule projections.WeeklySchedule `json:"schedule"`
}

// handleScheduleSocket handles GET /ws/schedule. Each connection subscribes
// to the change feed and is sent the full weekly schedule on connect and
// after every committed change.
func handleScheduleSocket(w http.ResponseWriter, r *http.Request) {
	if services == nil || services.Changes == nil {
		http.Error(w, "live updates are not configured", http.StatusServiceUnavailable)
		return
	}
	// Resolve the viewer before upgrading so auth failures are plain HTTP errors.
	if _, ok := requireViewer(w, r); !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws_upgrade_failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	changes, err := services.Changes.Subscribe(ctx)
	if err != nil {
		slog.Error("ws_subscribe_failed", "error", err.Error())
		return
	}
	slog.Info("ws_event", "event", "schedule_subscribed", "remote", r.RemoteAddr)

	go readPump(conn, cancel)

	if !pushSchedule(ctx, conn, r, "snapshot", "") {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("ws_event", "event", "schedule_unsubscribed", "remote", r.RemoteAddr)
			return
		case topic, ok := <-changes:
			if !ok {
				return
			}
			if !pushSchedule(ctx, conn, r, "changed", topic) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed,
// cancelling the connection context when the client goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pushSchedule rebuilds the viewer's schedule and writes it. The viewer is
// re-resolved each time so a payment change shows up in the pushed actions.
func pushSchedule(ctx context.Context, conn *websocket.Conn, r *http.Request, kind string, topic changefeed.Topic) bool {
	v, err := currentViewer(r.WithContext(ctx))
	if err != nil {
		slog.Warn("ws_push_failed", "error", err.Error())
		return true
	}
	schedule, err := projections.QueryWeeklySchedule(ctx, v, now(), scheduleDeps())
	if err != nil {
		slog.Warn("ws_push_failed", "error", err.Error())
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(scheduleMessage{Type: kind, Topic: topic, Schedule: schedule}); err != nil {
		slog.Info("ws_event", "event", "write_failed", "error", err.Error())
		return false
	}
	return true
}
