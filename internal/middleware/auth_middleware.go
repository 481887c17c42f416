package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
	"github.com/Rileydk/Pomodoro/internal/service"
)

const DeviceContextKey = "device"

// Auth accepts a bearer token in the Authorization header. EventSource
// clients cannot set headers, so the stream route also accepts ?token=.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		device, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(DeviceContextKey, device)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, *apperrors.APIError) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" && strings.HasSuffix(c.FullPath(), "/events") {
			return token, nil
		}
		return "", apperrors.Unauthorized("missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

// Device returns the authenticated device, or nil.
func Device(c *gin.Context) *service.Device {
	value, ok := c.Get(DeviceContextKey)
	if !ok {
		return nil
	}
	device, ok := value.(*service.Device)
	if !ok {
		return nil
	}
	return device
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
