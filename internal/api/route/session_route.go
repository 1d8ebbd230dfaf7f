package route

import (
	"time"

	"github.com/bassista/go_autosave/internal/api/controller"
	"github.com/bassista/go_autosave/internal/api/middleware"
	"github.com/bassista/go_autosave/internal/config"
	"github.com/bassista/go_autosave/internal/notify"
	"github.com/bassista/go_autosave/internal/session"
	"github.com/gin-gonic/gin"
)

// NewSessionRouter sets up editing session routes. The event stream is a
// websocket and is registered without the request timeout.
func NewSessionRouter(timeout time.Duration, group *gin.RouterGroup, sessions *session.Manager, hub *notify.Hub, cfg *config.Config) {
	sc := controller.NewSessionController(sessions, cfg.AutoSave.MaxBufferBytes)
	ec := controller.NewEventsController(sessions, hub, cfg.Server.CORSAllowedOrigins)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("sessions", timeoutMiddleware, sc.ListSessions)
	group.POST("sessions", timeoutMiddleware, sc.OpenSession)
	group.GET("sessions/:id", timeoutMiddleware, sc.GetSession)
	group.PUT("sessions/:id/buffer", timeoutMiddleware, sc.UpdateBuffer)
	group.POST("sessions/:id/save", timeoutMiddleware, sc.SaveSession)
	group.DELETE("sessions/:id", timeoutMiddleware, sc.CloseSession)
	group.GET("sessions/:id/events", ec.Events)
}
