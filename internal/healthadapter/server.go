// Package healthadapter exposes a coordinator's cached Result over
// HTTP and WebSocket: /healthz, /readyz, and a live /ws feed. It never
// triggers additional signal invocations — every handler only calls
// GetResult, which is idempotent. Grounded on the teacher's
// internal/api/server.go (plain http.ServeMux + jsonResponse/jsonError
// helpers) and internal/api/websocket.go (the push-on-interval feed
// pattern, generalized from per-task events to a single cached
// Result).
package healthadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/veggerby/ignition/internal/ignitionerrors"
	"github.com/veggerby/ignition/internal/result"
)

// Coordinator is the minimal surface this package needs, satisfied by
// *ignition.Coordinator. Declared locally so healthadapter stays a
// leaf package the coordinator core never has to import.
type Coordinator interface {
	GetResult(ctx context.Context) (*result.Result, error)
}

// Server exposes a Coordinator's cached Result over HTTP and
// WebSocket.
type Server struct {
	coord  Coordinator
	mux    *http.ServeMux
	logger *slog.Logger

	upgrader   websocket.Upgrader
	pushPeriod time.Duration
}

// New builds a Server wired to coord. pushPeriod controls how often
// /ws pushes the current cached Result to subscribers; a zero value
// defaults to 2 seconds.
func New(coord Coordinator, logger *slog.Logger, pushPeriod time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if pushPeriod <= 0 {
		pushPeriod = 2 * time.Second
	}
	s := &Server{coord: coord, mux: http.NewServeMux(), logger: logger, pushPeriod: pushPeriod}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.withRequestID(s.handleHealthz))
	s.mux.HandleFunc("GET /readyz", s.withRequestID(s.handleReadyz))
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// Handler returns the server's http.Handler, for embedding in a
// caller-owned http.Server (cmd/ignition's serve subcommand) rather
// than this package owning the listener lifecycle itself.
func (s *Server) Handler() http.Handler { return s.mux }

// withRequestID stamps every request with a correlation ID, grounded
// on the teacher's pervasive use of google/uuid for request/session
// IDs in internal/api/server.go.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	res, err := s.coord.GetResult(r.Context())
	if err != nil {
		s.jsonError(w, err)
		return
	}
	if !res.AllSucceeded() {
		s.jsonResponse(w, http.StatusServiceUnavailable, res)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleReadyz splits failures from timeouts for a finer-grained
// readiness check than /healthz's all-or-nothing verdict.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	res, err := s.coord.GetResult(r.Context())
	if err != nil {
		s.jsonError(w, err)
		return
	}
	switch {
	case res.HasTimeouts():
		s.jsonResponse(w, http.StatusGatewayTimeout, res)
	case res.HasFailures():
		s.jsonResponse(w, http.StatusServiceUnavailable, res)
	default:
		s.jsonResponse(w, http.StatusOK, res)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ie, ok := err.(*ignitionerrors.IgnitionError); ok {
		status = ie.HTTPStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
