package model

import (
	"fmt"
	"time"
)

type CountdownState int

const (
	StateNotStarted CountdownState = iota
	StateCounting
	StatePaused
	StateFinished
)

func (s CountdownState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateCounting:
		return "counting"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s CountdownState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type CountdownType int

const (
	CountdownFocus CountdownType = iota
	CountdownBreak
)

func (t CountdownType) String() string {
	if t == CountdownBreak {
		return "break"
	}
	return "focus"
}

// Label is the human readable name used in reminder payloads.
func (t CountdownType) Label() string {
	if t == CountdownBreak {
		return "Break"
	}
	return "Focus"
}

func (t CountdownType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t CountdownType) Toggle() CountdownType {
	if t == CountdownFocus {
		return CountdownBreak
	}
	return CountdownFocus
}

// RecordKind maps a countdown type onto the kind of detail record it produces.
func (t CountdownType) RecordKind() RecordKind {
	if t == CountdownBreak {
		return RecordRest
	}
	return RecordFocus
}

type SessionSnapshot struct {
	State            CountdownState `json:"state"`
	Type             CountdownType  `json:"type"`
	CurrentRound     int            `json:"currentRound"`
	RoundsPerSession int            `json:"roundsPerSession"`
	IsLastRound      bool           `json:"isLastRound"`
	SecondsElapsed   int            `json:"secondsElapsed"`
	TimeLeft         int            `json:"timeLeft"`
	Clock            string         `json:"clock"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
}

// FormatClock renders seconds as mm:ss. Negative input renders as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
