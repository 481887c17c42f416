package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rileydk/Pomodoro/internal/service"
	"github.com/Rileydk/Pomodoro/internal/session"
)

const (
	eventBuffer       = 64
	heartbeatInterval = 15 * time.Second
)

type SessionHandler struct {
	sessionService *service.SessionService
	events         *session.Broadcaster
}

func NewSessionHandler(sessionService *service.SessionService, events *session.Broadcaster) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, events: events}
}

func (h *SessionHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.sessionService.GetState()})
}

func (h *SessionHandler) Start(c *gin.Context) {
	state, apiErr := h.sessionService.Start(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *SessionHandler) Pause(c *gin.Context) {
	state, apiErr := h.sessionService.Pause(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.sessionService.Reset(c.Request.Context())})
}

func (h *SessionHandler) Background(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.sessionService.Background()})
}

func (h *SessionHandler) Foreground(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.sessionService.Foreground(c.Request.Context())})
}

// Events streams engine events as server-sent events until the client goes
// away. The current state is sent first.
func (h *SessionHandler) Events(c *gin.Context) {
	events, unsubscribe := h.events.Subscribe(eventBuffer)
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", gin.H{"state": h.sessionService.GetState()})

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"serverTime": time.Now().UTC()})
			return true
		}
	})
}
