package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"etlinspector/internal/config"
	"etlinspector/internal/infrastructure"
)

// Handler upgrades HTTP requests and attaches the connection to a hub.
// The optional job_id query parameter limits the stream to one job.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	cfg            config.WebSocketConfig
	allowedOrigins []string
	logger         *slog.Logger
}

// NewHandler creates the /ws handler. allowedOrigins may contain "*".
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = 1024
	}
	h := &Handler{
		hub:            hub,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// checkOrigin allows requests without an Origin, same-host origins and
// configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	if slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
		slog.String("origin", origin))
	return false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied.
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	if traceID == "" {
		traceID = middleware.GetReqID(r.Context())
	}

	client := NewClient(h.hub, NewConnectionWrapper(conn), ClientOptions{
		TraceID:    traceID,
		JobID:      r.URL.Query().Get("job_id"),
		WriteWait:  h.cfg.WriteWait,
		PongWait:   h.cfg.PongWait,
		PingPeriod: h.cfg.PingPeriod,
	}, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
