// Package preference reads and writes typed values in a PreferenceStore and
// knows the keys the session engine relies on.
package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

const (
	// KeyFlowDuration holds [focusMinutes].
	KeyFlowDuration = "flowDuration"
	// KeyBreakDuration holds [shortBreakMinutes, longBreakMinutes].
	KeyBreakDuration      = "breakDuration"
	KeySessionRounds      = "sessionRounds"
	KeyAutoStartBreak     = "autoStartBreak"
	KeyAutoStartNextRound = "autoStartNextRound"
	KeyNotification       = "notification"
	// KeySessionStartedAt is the resume checkpoint. It exists only while a
	// countdown is counting.
	KeySessionStartedAt = "sessionStartedAt"
	// KeyCountdownFinished holds the id of the most recent reminder request.
	KeyCountdownFinished = "countdownFinished"
)

type Store struct {
	backend storage.PreferenceStore
	logger  zerolog.Logger
}

func New(backend storage.PreferenceStore, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "preferences").Logger(),
	}
}

// load decodes key into out. It reports false when the key is absent or
// holds a value of the wrong shape; the latter is logged.
func (s *Store) load(ctx context.Context, key string, out interface{}) bool {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read preference")
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Ignoring malformed preference")
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

func (s *Store) String(ctx context.Context, key, fallback string) string {
	var value string
	if !s.load(ctx, key, &value) {
		return fallback
	}
	return value
}

func (s *Store) Bool(ctx context.Context, key string, fallback bool) bool {
	var value bool
	if !s.load(ctx, key, &value) {
		return fallback
	}
	return value
}

func (s *Store) Int(ctx context.Context, key string, fallback int) int {
	var value int
	if !s.load(ctx, key, &value) {
		return fallback
	}
	return value
}

func (s *Store) Ints(ctx context.Context, key string, fallback []int) []int {
	var value []int
	if !s.load(ctx, key, &value) {
		return fallback
	}
	return value
}

func (s *Store) SetString(ctx context.Context, key, value string) error {
	return s.save(ctx, key, value)
}

func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	return s.save(ctx, key, value)
}

func (s *Store) SetInt(ctx context.Context, key string, value int) error {
	return s.save(ctx, key, value)
}

func (s *Store) SetInts(ctx context.Context, key string, value []int) error {
	return s.save(ctx, key, value)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove preference %s: %w", key, err)
	}
	return nil
}

// LoadSchedule reads the schedule, replacing missing or invalid values with
// defaults.
func (s *Store) LoadSchedule(ctx context.Context) model.ScheduleConfig {
	defaults := model.DefaultSchedule()
	cfg := defaults

	if flow := s.Ints(ctx, KeyFlowDuration, nil); len(flow) > 0 {
		cfg.FocusMinutes = flow[0]
	}
	breaks := s.Ints(ctx, KeyBreakDuration, nil)
	if len(breaks) > 0 {
		cfg.ShortBreakMinutes = breaks[0]
	}
	if len(breaks) > 1 {
		cfg.LongBreakMinutes = breaks[1]
	}
	cfg.RoundsPerSession = s.Int(ctx, KeySessionRounds, defaults.RoundsPerSession)
	cfg.AutoStartBreak = s.Bool(ctx, KeyAutoStartBreak, defaults.AutoStartBreak)
	cfg.AutoStartNextRound = s.Bool(ctx, KeyAutoStartNextRound, defaults.AutoStartNextRound)
	cfg.NotificationsEnabled = s.Bool(ctx, KeyNotification, defaults.NotificationsEnabled)

	cfg, replaced := cfg.Normalize()
	if len(replaced) > 0 {
		s.logger.Warn().Strs("fields", replaced).Msg("Schedule preferences invalid, using defaults")
	}
	return cfg
}

func (s *Store) SaveSchedule(ctx context.Context, cfg model.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.SetInts(ctx, KeyFlowDuration, []int{cfg.FocusMinutes}); err != nil {
		return err
	}
	if err := s.SetInts(ctx, KeyBreakDuration, []int{cfg.ShortBreakMinutes, cfg.LongBreakMinutes}); err != nil {
		return err
	}
	if err := s.SetInt(ctx, KeySessionRounds, cfg.RoundsPerSession); err != nil {
		return err
	}
	if err := s.SetBool(ctx, KeyAutoStartBreak, cfg.AutoStartBreak); err != nil {
		return err
	}
	if err := s.SetBool(ctx, KeyAutoStartNextRound, cfg.AutoStartNextRound); err != nil {
		return err
	}
	return s.SetBool(ctx, KeyNotification, cfg.NotificationsEnabled)
}

// Checkpoint returns the persisted countdown start, if any.
func (s *Store) Checkpoint(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.backend.Get(ctx, KeySessionStartedAt)
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var startedAt time.Time
	if err := json.Unmarshal(raw, &startedAt); err != nil {
		return time.Time{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return startedAt, true, nil
}

func (s *Store) SaveCheckpoint(ctx context.Context, startedAt time.Time) error {
	return s.save(ctx, KeySessionStartedAt, startedAt.UTC())
}

func (s *Store) ClearCheckpoint(ctx context.Context) error {
	return s.Remove(ctx, KeySessionStartedAt)
}

func (s *Store) SetReminderID(ctx context.Context, id string) error {
	return s.SetString(ctx, KeyCountdownFinished, id)
}
