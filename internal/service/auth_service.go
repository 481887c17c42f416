package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
)

// AuthService issues and verifies device tokens. A device is any client that
// drives the session: a phone, a watch or the CLI.
type AuthService struct {
	jwtSecret   []byte
	tokenTTL    time.Duration
	pairingCode string
}

type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DeviceClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type AuthResult struct {
	Token     string    `json:"token"`
	Device    Device    `json:"device"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthService(jwtSecret string, tokenTTL time.Duration, pairingCode string) *AuthService {
	return &AuthService{
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		pairingCode: pairingCode,
	}
}

// Pair exchanges the configured pairing code for a device token.
func (s *AuthService) Pair(deviceName, code string) (*AuthResult, *apperrors.APIError) {
	if s.pairingCode == "" {
		return nil, apperrors.Forbidden("pairing is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.pairingCode)) != 1 {
		return nil, apperrors.Unauthorized("invalid pairing code")
	}
	return s.IssueToken(deviceName)
}

func (s *AuthService) IssueToken(deviceName string) (*AuthResult, *apperrors.APIError) {
	name := strings.TrimSpace(deviceName)
	if name == "" {
		return nil, apperrors.BadRequest("invalid_device", "device name is required")
	}

	now := time.Now().UTC()
	device := Device{ID: uuid.NewString(), Name: name}
	expiresAt := now.Add(s.tokenTTL)
	claims := DeviceClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   device.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token").WithCause(err)
	}
	return &AuthResult{Token: signed, Device: device, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) ParseToken(tokenString string) (*Device, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("invalid token subject")
	}

	return &Device{ID: claims.Subject, Name: claims.Name}, nil
}
