package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/rs/zerolog"
)

// Event is one message on the scanner event stream
type Event struct {
	Type      string                  `json:"type"` // "detection" or "status"
	Detection *domain.DecodeResult    `json:"detection,omitempty"`
	Snapshot  *domain.ScannerSnapshot `json:"snapshot,omitempty"`
}

// DetectionEvent wraps an accepted detection for broadcast
func DetectionEvent(result domain.DecodeResult) Event {
	return Event{Type: "detection", Detection: &result}
}

// StatusEvent wraps a scanner snapshot for broadcast
func StatusEvent(snap domain.ScannerSnapshot) Event {
	return Event{Type: "status", Snapshot: &snap}
}

// EventHub fans scanner events out to connected websocket clients. This is
// how the UI collaborator wires detection to lookup without polling.
type EventHub struct {
	log zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{
		log:   logging.WithComponent("events"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Broadcast sends an event to every connected client, dropping clients whose
// writes fail
func (h *EventHub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("event marshal failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *EventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		conn.Close()
		delete(h.conns, conn)
	}
}

// ServeEvents upgrades the request to a websocket and streams scanner events
// until the client disconnects. The stream is one-way; inbound messages are
// discarded.
func (h *Handler) ServeEvents(allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, allowedOrigins)
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			h.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		h.hub.add(conn)

		// Read loop exists only to observe the close
		go func() {
			defer h.hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
