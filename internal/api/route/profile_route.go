package route

import (
	"time"

	"github.com/bassista/go_autosave/internal/api/controller"
	"github.com/bassista/go_autosave/internal/api/middleware"
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/gin-gonic/gin"
)

func NewProfileRouter(timeout time.Duration, group *gin.RouterGroup, store cache.ProfileStore) {
	pc := controller.NewProfileController(store)
	g := group.Group("", middleware.RequestTimeout(timeout))

	g.GET("profiles", pc.AllProfiles)
	g.GET("profile/:id", pc.GetProfile)
	g.POST("profile", pc.CreateOrUpdateProfile)
	g.DELETE("profile/:id", pc.DeleteProfile)
}
