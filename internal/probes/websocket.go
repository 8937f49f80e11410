package probes

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("websocket", newWebSocket)
}

func newWebSocket(with map[string]string) (signal.Operation, error) {
	url, err := arg(with, "url")
	if err != nil {
		return nil, err
	}
	return WebSocketReachable(url), nil
}

// WebSocketReachable dials and handshakes a WebSocket endpoint,
// grounded on internal/api/websocket.go's use of gorilla/websocket for
// the live dashboard feed — here used client-side, purely to confirm
// the handshake completes, then closed immediately.
func WebSocketReachable(url string) signal.Operation {
	return func(ctx context.Context) error {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			defer resp.Body.Close()
		}
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
