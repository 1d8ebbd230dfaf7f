package controller

import (
	"net/http"

	"github.com/bassista/go_autosave/internal/config"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse is the auto-save configuration exposed to editor clients.
type ConfigurationResponse struct {
	DelayMs        int64    `json:"delayMs"`
	SessionTTLSec  int64    `json:"sessionTtlSec"`
	MaxBufferBytes int64    `json:"maxBufferBytes"`
	Executor       string   `json:"executor"`
	Sections       []string `json:"sections"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the auto-save configuration for the frontend.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	executor := cc.config.AutoSave.Executor
	if executor == "" {
		executor = "store"
	}
	c.JSON(http.StatusOK, ConfigurationResponse{
		DelayMs:        cc.config.AutoSave.Delay.Milliseconds(),
		SessionTTLSec:  int64(cc.config.AutoSave.SessionTTL.Seconds()),
		MaxBufferBytes: cc.config.AutoSave.MaxBufferBytes,
		Executor:       executor,
		Sections:       repository.Sections,
	})
}
