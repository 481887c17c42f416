package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rileydk/Pomodoro/internal/service"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

type updateSettingsRequest struct {
	FocusMinutes         *int  `json:"focusMinutes"`
	ShortBreakMinutes    *int  `json:"shortBreakMinutes"`
	LongBreakMinutes     *int  `json:"longBreakMinutes"`
	RoundsPerSession     *int  `json:"roundsPerSession"`
	AutoStartBreak       *bool `json:"autoStartBreak"`
	AutoStartNextRound   *bool `json:"autoStartNextRound"`
	NotificationsEnabled *bool `json:"notificationsEnabled"`
}

func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.settingsService.Get(c.Request.Context())})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	settings, apiErr := h.settingsService.Update(c.Request.Context(), service.UpdateSettingsInput{
		FocusMinutes:         req.FocusMinutes,
		ShortBreakMinutes:    req.ShortBreakMinutes,
		LongBreakMinutes:     req.LongBreakMinutes,
		RoundsPerSession:     req.RoundsPerSession,
		AutoStartBreak:       req.AutoStartBreak,
		AutoStartNextRound:   req.AutoStartNextRound,
		NotificationsEnabled: req.NotificationsEnabled,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
