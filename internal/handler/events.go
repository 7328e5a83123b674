package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/hirebridge/internal/events"
	"github.com/aryan0dhankhar/hirebridge/internal/observability/metrics"
	"github.com/aryan0dhankhar/hirebridge/internal/security"
)

const (
	eventBuffer  = 32
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// EventsHandler streams introduction lifecycle events over a WebSocket
type EventsHandler struct {
	hub            *events.Hub
	gate           *security.AccessGate
	logger         *slog.Logger
	allowedOrigins []string
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *events.Hub, gate *security.AccessGate, logger *slog.Logger, allowedOrigins []string) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		hub:            hub,
		gate:           gate,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *EventsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /v1/introductions/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := requireIdentity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// Subscribers must be able to see at least one side of the ledger
	if !h.gate.Check(id, security.CapViewSentIntroductions).Allowed {
		if err := h.gate.Require(id, security.CapViewReceivedIntroductions); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe(events.AudienceFor(id), eventBuffer)
	defer h.hub.Unsubscribe(sub)
	metrics.SubscriberConnected()
	defer metrics.SubscriberDisconnected()

	logger := h.logger.With(slog.String("principal_id", id.PrincipalID))
	logger.Debug("event subscriber connected")

	// Reader loop: surfaces client close frames and keeps pong handling alive
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
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
			logger.Debug("event subscriber disconnected")
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case e, ok := <-sub:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(e); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket closed", slog.String("error", err.Error()))
				}
				return
			}
		}
	}
}
