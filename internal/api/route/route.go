package route

import (
	"net/http"

	"github.com/bassista/go_autosave/internal/api/middleware"
	"github.com/bassista/go_autosave/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the gin engine with every API route of the gateway.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.HoneybadgerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "UP",
			"sessions": appCtx.Sessions.Len(),
			"dirty":    appCtx.Cache.IsDirty(),
		})
	})

	publicRouter := r.Group("")
	timeout := appCtx.Config.Server.RequestTimeout

	NewProfileRouter(timeout, publicRouter, appCtx.Cache)
	NewSessionRouter(timeout, publicRouter, appCtx.Sessions, appCtx.Hub, appCtx.Config)
	NewConfigurationRouter(timeout, publicRouter, appCtx.Config)

	return r
}
