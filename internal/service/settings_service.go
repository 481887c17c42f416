package service

import (
	"context"
	"errors"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/preference"
	"github.com/Rileydk/Pomodoro/internal/session"
)

type SettingsService struct {
	prefs  *preference.Store
	engine *session.Engine
}

// UpdateSettingsInput carries a partial update; nil fields keep their
// current value.
type UpdateSettingsInput struct {
	FocusMinutes         *int
	ShortBreakMinutes    *int
	LongBreakMinutes     *int
	RoundsPerSession     *int
	AutoStartBreak       *bool
	AutoStartNextRound   *bool
	NotificationsEnabled *bool
}

func NewSettingsService(prefs *preference.Store, engine *session.Engine) *SettingsService {
	return &SettingsService{prefs: prefs, engine: engine}
}

func (s *SettingsService) Get(ctx context.Context) model.ScheduleConfig {
	return s.prefs.LoadSchedule(ctx)
}

func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*model.ScheduleConfig, *apperrors.APIError) {
	cfg := s.prefs.LoadSchedule(ctx)

	if input.FocusMinutes != nil {
		cfg.FocusMinutes = *input.FocusMinutes
	}
	if input.ShortBreakMinutes != nil {
		cfg.ShortBreakMinutes = *input.ShortBreakMinutes
	}
	if input.LongBreakMinutes != nil {
		cfg.LongBreakMinutes = *input.LongBreakMinutes
	}
	if input.RoundsPerSession != nil {
		cfg.RoundsPerSession = *input.RoundsPerSession
	}
	if input.AutoStartBreak != nil {
		cfg.AutoStartBreak = *input.AutoStartBreak
	}
	if input.AutoStartNextRound != nil {
		cfg.AutoStartNextRound = *input.AutoStartNextRound
	}
	if input.NotificationsEnabled != nil {
		cfg.NotificationsEnabled = *input.NotificationsEnabled
	}

	if err := s.prefs.SaveSchedule(ctx, cfg); err != nil {
		if errors.Is(err, model.ErrInvalidSchedule) {
			return nil, apperrors.BadRequest("invalid_settings", err.Error())
		}
		return nil, apperrors.Internal("failed to save settings").WithCause(err)
	}

	if s.engine != nil {
		s.engine.ReloadSchedule(ctx)
	}
	return &cfg, nil
}
