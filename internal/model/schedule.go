package model

import (
	"errors"
	"fmt"
)

const (
	DefaultFocusMinutes      = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultRoundsPerSession  = 4
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// ScheduleConfig is reloaded from preferences at the start of every interval.
type ScheduleConfig struct {
	FocusMinutes         int  `json:"focusMinutes"`
	ShortBreakMinutes    int  `json:"shortBreakMinutes"`
	LongBreakMinutes     int  `json:"longBreakMinutes"`
	RoundsPerSession     int  `json:"roundsPerSession"`
	AutoStartBreak       bool `json:"autoStartBreak"`
	AutoStartNextRound   bool `json:"autoStartNextRound"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		FocusMinutes:         DefaultFocusMinutes,
		ShortBreakMinutes:    DefaultShortBreakMinutes,
		LongBreakMinutes:     DefaultLongBreakMinutes,
		RoundsPerSession:     DefaultRoundsPerSession,
		NotificationsEnabled: true,
	}
}

func (c ScheduleConfig) Validate() error {
	switch {
	case c.FocusMinutes <= 0:
		return fmt.Errorf("%w: focusMinutes must be positive", ErrInvalidSchedule)
	case c.ShortBreakMinutes <= 0:
		return fmt.Errorf("%w: shortBreakMinutes must be positive", ErrInvalidSchedule)
	case c.LongBreakMinutes <= 0:
		return fmt.Errorf("%w: longBreakMinutes must be positive", ErrInvalidSchedule)
	case c.RoundsPerSession < 1:
		return fmt.Errorf("%w: roundsPerSession must be at least 1", ErrInvalidSchedule)
	}
	return nil
}

// Normalize replaces out-of-range values with defaults and reports the
// names of the fields it replaced.
func (c ScheduleConfig) Normalize() (ScheduleConfig, []string) {
	defaults := DefaultSchedule()
	var replaced []string
	if c.FocusMinutes <= 0 {
		c.FocusMinutes = defaults.FocusMinutes
		replaced = append(replaced, "focusMinutes")
	}
	if c.ShortBreakMinutes <= 0 {
		c.ShortBreakMinutes = defaults.ShortBreakMinutes
		replaced = append(replaced, "shortBreakMinutes")
	}
	if c.LongBreakMinutes <= 0 {
		c.LongBreakMinutes = defaults.LongBreakMinutes
		replaced = append(replaced, "longBreakMinutes")
	}
	if c.RoundsPerSession < 1 {
		c.RoundsPerSession = defaults.RoundsPerSession
		replaced = append(replaced, "roundsPerSession")
	}
	return c, replaced
}

func (c ScheduleConfig) IsLastRound(round int) bool {
	return round >= c.RoundsPerSession
}

// ScheduledSeconds returns the length of an interval of the given type in
// the given round. The break that follows the last round is the long break.
func (c ScheduleConfig) ScheduledSeconds(countdownType CountdownType, round int) int {
	switch {
	case countdownType == CountdownFocus:
		return c.FocusMinutes * 60
	case c.IsLastRound(round):
		return c.LongBreakMinutes * 60
	default:
		return c.ShortBreakMinutes * 60
	}
}
