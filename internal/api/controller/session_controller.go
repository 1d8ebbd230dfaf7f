package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bassista/go_autosave/internal/autosave"
	"github.com/bassista/go_autosave/internal/cache"
	"github.com/bassista/go_autosave/internal/logger"
	"github.com/bassista/go_autosave/internal/repository"
	"github.com/bassista/go_autosave/internal/session"
	"github.com/gin-gonic/gin"
)

// SessionService is the part of the session manager the controller uses.
type SessionService interface {
	Open(profileID, section, token string) (session.Info, error)
	Get(id string) (session.Info, error)
	List() []session.Info
	Notify(id string, payload json.RawMessage) (session.Info, error)
	Flush(ctx context.Context, id string) (session.Info, error)
	Close(ctx context.Context, id string, flush bool) (session.Info, error)
}

// OpenSessionRequest is the body of POST /sessions.
type OpenSessionRequest struct {
	ProfileID string `json:"profileId" binding:"required"`
	Section   string `json:"section" binding:"required"`
}

// SessionController exposes editing sessions over HTTP.
type SessionController struct {
	sessions       SessionService
	maxBufferBytes int64
}

func NewSessionController(sessions SessionService, maxBufferBytes int64) *SessionController {
	if maxBufferBytes <= 0 {
		maxBufferBytes = 1 << 20
	}
	return &SessionController{sessions: sessions, maxBufferBytes: maxBufferBytes}
}

// OpenSession handles POST /sessions.
func (sc *SessionController) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	info, err := sc.sessions.Open(req.ProfileID, req.Section, bearerToken(c))
	if err != nil {
		respondSessionError(c, "open", err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListSessions handles GET /sessions.
func (sc *SessionController) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, sc.sessions.List())
}

// GetSession handles GET /sessions/:id.
func (sc *SessionController) GetSession(c *gin.Context) {
	info, err := sc.sessions.Get(c.Param("id"))
	if err != nil {
		respondSessionError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// UpdateBuffer handles PUT /sessions/:id/buffer. The body is the whole
// section value and replaces the previous one.
func (sc *SessionController) UpdateBuffer(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxBufferBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "buffer too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read buffer"})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buffer must be valid JSON"})
		return
	}

	info, err := sc.sessions.Notify(c.Param("id"), json.RawMessage(body))
	if err != nil {
		respondSessionError(c, "notify", err)
		return
	}
	c.JSON(http.StatusAccepted, info)
}

// SaveSession handles POST /sessions/:id/save.
func (sc *SessionController) SaveSession(c *gin.Context) {
	info, err := sc.sessions.Flush(c.Request.Context(), c.Param("id"))
	if err != nil {
		if info.ID != "" && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, autosave.ErrClosed) {
			logger.WithComponent("session-controller").Warnf("manual save of %s failed: %v", info.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session": info})
			return
		}
		respondSessionError(c, "save", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseSession handles DELETE /sessions/:id. Pending changes are dropped
// unless ?flush=true is given.
func (sc *SessionController) CloseSession(c *gin.Context) {
	flush := c.Query("flush") == "true"
	info, err := sc.sessions.Close(c.Request.Context(), c.Param("id"), flush)
	if err != nil {
		if info.ID != "" && flush && !errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session": info})
			return
		}
		respondSessionError(c, "close", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func respondSessionError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, cache.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrUnknownSection), errors.Is(err, autosave.ErrNotComparable):
		status = http.StatusBadRequest
	case errors.Is(err, autosave.ErrClosed):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		logger.WithComponent("session-controller").Errorf("%s session: %v", op, err)
	} else {
		logger.WithComponent("session-controller").Debugf("%s session: %v", op, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
