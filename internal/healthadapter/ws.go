package healthadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// handleWS upgrades the connection and pushes the current cached
// Result on an interval until the client disconnects. It never
// re-invokes a signal — every tick is just another GetResult call.
// Grounded on internal/api/websocket.go's WSHandler, simplified from a
// bidirectional subscribe/command protocol down to a one-way push
// feed since a readiness Result has no client-issued commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// Drain and discard client frames so pongs are observed; this feed
	// has no inbound protocol of its own.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushPeriod)
	defer ticker.Stop()
	pinger := time.NewTicker(wsPingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.coord.GetResult(r.Context())
			if err != nil {
				return
			}
			payload, err := json.Marshal(res)
			if err != nil {
				s.logger.Error("marshal result for ws push", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
