package controller

import (
	"net/http"
	"strings"

	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/notify"
	"github.com/bassista/go_autosave/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// EventStreamer delivers session events to websocket connections.
type EventStreamer interface {
	Subscribe(sessionID string) *notify.Subscriber
	Unsubscribe(sub *notify.Subscriber)
	Stream(conn *websocket.Conn, sub *notify.Subscriber)
}

// SessionLookup reports whether a session exists.
type SessionLookup interface {
	Get(id string) (session.Info, error)
}

// statusMessage is the first message of every event stream.
type statusMessage struct {
	Type    string       `json:"type"`
	Session session.Info `json:"session"`
}

// EventsController streams scheduler events of one session over a websocket.
type EventsController struct {
	sessions SessionLookup
	streamer EventStreamer
	upgrader websocket.Upgrader
}

// NewEventsController accepts the same origins as the CORS middleware
// (comma-separated, or "*").
func NewEventsController(sessions SessionLookup, streamer EventStreamer, allowedOrigins string) *EventsController {
	return &EventsController{
		sessions: sessions,
		streamer: streamer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Events handles GET /sessions/:id/events.
func (ec *EventsController) Events(c *gin.Context) {
	id := c.Param("id")
	info, err := ec.sessions.Get(id)
	if err != nil {
		respondSessionError(c, "stream", err)
		return
	}

	conn, err := ec.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithSession("events-controller", id).Debugf("websocket upgrade failed: %v", err)
		return
	}

	sub := ec.streamer.Subscribe(id)
	if err := conn.WriteJSON(statusMessage{Type: "status", Session: info}); err != nil {
		ec.streamer.Unsubscribe(sub)
		_ = conn.Close()
		return
	}
	ec.streamer.Stream(conn, sub)
}

func originChecker(allowedOrigins string) func(r *http.Request) bool {
	if allowedOrigins == "" || allowedOrigins == "*" {
		return func(*http.Request) bool { return true }
	}
	allowed := map[string]bool{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
