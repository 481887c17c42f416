package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/preference"
	"github.com/Rileydk/Pomodoro/internal/session"
	"github.com/Rileydk/Pomodoro/internal/storage/memory"
)

type idleTicker struct{}

func (idleTicker) Start(time.Duration, func()) {}
func (idleTicker) Stop()                       {}

func newSessionStack(t *testing.T) (*SessionService, *SettingsService) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	prefs := preference.New(store, zerolog.Nop())
	reports := newReportService(t, store)

	engine, err := session.NewEngine(ctx, session.Options{
		Preferences: prefs,
		Recorder:    reports,
		Ticker:      idleTicker{},
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewSessionService(engine, reports), NewSettingsService(prefs, engine)
}

func TestSessionServiceConflict(t *testing.T) {
	sessions, _ := newSessionStack(t)
	ctx := context.Background()

	if _, apiErr := sessions.Pause(ctx); apiErr == nil || apiErr.Status != http.StatusConflict || apiErr.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition conflict, got %v", apiErr)
	}

	view, apiErr := sessions.Start(ctx)
	if apiErr != nil {
		t.Fatalf("start: %v", apiErr)
	}
	if view.State != model.StateCounting || view.Schedule.FocusMinutes != model.DefaultFocusMinutes {
		t.Fatalf("unexpected view %+v", view)
	}
	if view = sessions.Reset(ctx); view.State != model.StateNotStarted {
		t.Fatalf("expected not started after reset, got %s", view.State)
	}
}

func TestSettingsUpdate(t *testing.T) {
	sessions, settings := newSessionStack(t)
	ctx := context.Background()

	focus := 40
	rounds := 2
	updated, apiErr := settings.Update(ctx, UpdateSettingsInput{FocusMinutes: &focus, RoundsPerSession: &rounds})
	if apiErr != nil {
		t.Fatalf("update: %v", apiErr)
	}
	if updated.FocusMinutes != 40 || updated.ShortBreakMinutes != model.DefaultShortBreakMinutes || updated.RoundsPerSession != 2 {
		t.Fatalf("unexpected settings %+v", updated)
	}
	if view := sessions.GetState(); view.TimeLeft != 40*60 {
		t.Fatalf("expected idle engine to pick up new focus length, got %d", view.TimeLeft)
	}

	zero := 0
	if _, apiErr := settings.Update(ctx, UpdateSettingsInput{LongBreakMinutes: &zero}); apiErr == nil || apiErr.Code != "invalid_settings" {
		t.Fatalf("expected invalid_settings, got %v", apiErr)
	}
	if got := settings.Get(ctx); got.LongBreakMinutes != model.DefaultLongBreakMinutes {
		t.Fatalf("rejected update must not be stored, got %d", got.LongBreakMinutes)
	}
}
