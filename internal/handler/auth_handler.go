package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rileydk/Pomodoro/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

type pairRequest struct {
	DeviceName  string `json:"deviceName"`
	PairingCode string `json:"pairingCode"`
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Pair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.authService.Pair(req.DeviceName, req.PairingCode)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusCreated, result)
}
