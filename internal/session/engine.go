// Package session runs the focus/break countdown state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/metrics"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/reminder"
)

var ErrInvalidTransition = errors.New("invalid session transition")

const tickInterval = time.Second

// Preferences is the part of the preference store the engine needs.
type Preferences interface {
	LoadSchedule(ctx context.Context) model.ScheduleConfig
	Checkpoint(ctx context.Context) (time.Time, bool, error)
	SaveCheckpoint(ctx context.Context, startedAt time.Time) error
	ClearCheckpoint(ctx context.Context) error
	SetReminderID(ctx context.Context, id string) error
}

// Recorder receives every completed interval.
type Recorder interface {
	RecordInterval(ctx context.Context, start, end time.Time, kind model.RecordKind) error
}

type Options struct {
	Preferences Preferences
	Recorder    Recorder
	Reminders   reminder.Dispatcher
	Ticker      Ticker
	Observer    Observer
	Logger      zerolog.Logger
	Now         func() time.Time
	AppName     string
}

type Engine struct {
	mu sync.Mutex

	prefs     Preferences
	recorder  Recorder
	reminders reminder.Dispatcher
	ticker    Ticker
	observer  Observer
	logger    zerolog.Logger
	now       func() time.Time
	appName   string

	// ctx is used for work triggered by ticks rather than callers.
	ctx context.Context

	schedule  model.ScheduleConfig
	state     model.CountdownState
	ctype     model.CountdownType
	round     int
	elapsed   int
	startedAt *time.Time

	// gen identifies the live clock schedule. Ticks carrying an older
	// generation are ignored.
	gen uint64
}

// NewEngine builds an engine in NotStarted/Focus/round 0. A checkpoint left
// behind by a previous process is discarded because no countdown survives a
// restart.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Preferences == nil {
		return nil, errors.New("session: preferences are required")
	}
	e := &Engine{
		prefs:     opts.Preferences,
		recorder:  opts.Recorder,
		reminders: opts.Reminders,
		ticker:    opts.Ticker,
		observer:  opts.Observer,
		logger:    opts.Logger.With().Str("component", "session").Logger(),
		now:       opts.Now,
		appName:   opts.AppName,
		ctx:       context.WithoutCancel(ctx),
		state:     model.StateNotStarted,
		ctype:     model.CountdownFocus,
	}
	if e.ticker == nil {
		e.ticker = NewIntervalTicker()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.appName == "" {
		e.appName = "Pomodoro"
	}

	e.schedule = e.prefs.LoadSchedule(ctx)

	startedAt, ok, err := e.prefs.Checkpoint(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read resume checkpoint")
	}
	if ok {
		e.logger.Warn().Time("started_at", startedAt).Msg("Discarding stale resume checkpoint")
		if err := e.prefs.ClearCheckpoint(ctx); err != nil {
			e.logger.Error().Err(err).Msg("Failed to clear stale checkpoint")
		}
	}
	return e, nil
}

func (e *Engine) Snapshot() model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) Schedule() model.ScheduleConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schedule
}

// ReloadSchedule picks up new settings immediately when no interval is in
// progress. Otherwise they apply from the next interval.
func (e *Engine) ReloadSchedule(ctx context.Context) model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == model.StateNotStarted && e.elapsed == 0 {
		e.loadScheduleLocked(ctx)
		e.observer.OnStateChanged(e.snapshotLocked())
	}
	return e.snapshotLocked()
}

func (e *Engine) Start(ctx context.Context) (model.SessionSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.startLocked(ctx); err != nil {
		return e.snapshotLocked(), err
	}
	return e.snapshotLocked(), nil
}

func (e *Engine) Pause(ctx context.Context) (model.SessionSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.StateCounting {
		return e.snapshotLocked(), fmt.Errorf("%w: cannot pause while %s", ErrInvalidTransition, e.state)
	}

	e.stopClockLocked()
	e.cancelRemindersLocked(ctx)
	e.clearCheckpointLocked(ctx)
	e.startedAt = nil
	e.setStateLocked(model.StatePaused)
	return e.snapshotLocked(), nil
}

func (e *Engine) ResetRound(ctx context.Context) model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetRoundLocked(ctx, e.timeLeftLocked() != 0)
	return e.snapshotLocked()
}

func (e *Engine) startLocked(ctx context.Context) error {
	if e.state != model.StateNotStarted && e.state != model.StatePaused {
		return fmt.Errorf("%w: cannot start while %s", ErrInvalidTransition, e.state)
	}

	if e.state == model.StateNotStarted && e.elapsed == 0 {
		e.loadScheduleLocked(ctx)
	}
	if e.round == 0 {
		e.round = 1
	}

	e.startClockLocked()

	startedAt, ok, err := e.prefs.Checkpoint(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read resume checkpoint")
	}
	if ok {
		e.startedAt = &startedAt
	} else {
		timeLeft := e.timeLeftLocked()
		e.scheduleReminderLocked(ctx, timeLeft)

		// The checkpoint holds the moment the interval would have started
		// had it never been paused.
		effective := e.now().Add(-time.Duration(e.elapsed) * time.Second)
		if err := e.prefs.SaveCheckpoint(ctx, effective); err != nil {
			e.logger.Error().Err(err).Msg("Failed to save resume checkpoint")
		}
		e.startedAt = &effective
	}

	e.setStateLocked(model.StateCounting)
	return nil
}

// loadScheduleLocked reads the stored schedule and keeps the current round
// within the new session length.
func (e *Engine) loadScheduleLocked(ctx context.Context) {
	e.schedule = e.prefs.LoadSchedule(ctx)
	if e.round > e.schedule.RoundsPerSession {
		e.round = e.schedule.RoundsPerSession
	}
}

func (e *Engine) resetRoundLocked(ctx context.Context, cancelReminders bool) {
	e.stopClockLocked()
	if cancelReminders {
		e.cancelRemindersLocked(ctx)
	}
	e.clearCheckpointLocked(ctx)
	e.startedAt = nil
	e.elapsed = 0
	e.setStateLocked(model.StateNotStarted)
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.state != model.StateCounting {
		return
	}

	e.elapsed++
	timeLeft := e.timeLeftLocked()
	e.observer.OnTick(e.snapshotLocked())

	if timeLeft < 0 {
		e.logger.Error().
			Int("elapsed", e.elapsed).
			Int("time_left", timeLeft).
			Msg("Negative time left while counting")
	}
	if timeLeft <= 0 {
		e.finishLocked(e.ctx, e.now())
	}
}

// finishLocked records the interval that ended at end and rolls the engine
// over to the next interval.
func (e *Engine) finishLocked(ctx context.Context, end time.Time) {
	e.stopClockLocked()
	e.setStateLocked(model.StateFinished)
	e.clearCheckpointLocked(ctx)

	finished := e.ctype
	scheduled := time.Duration(e.schedule.ScheduledSeconds(finished, e.round)) * time.Second
	metrics.IntervalsCompleted.WithLabelValues(finished.String()).Inc()

	if e.recorder != nil {
		if err := e.recorder.RecordInterval(ctx, end.Add(-scheduled), end, finished.RecordKind()); err != nil {
			e.logger.Error().Err(err).
				Str("type", finished.String()).
				Int("round", e.round).
				Msg("Failed to record interval")
		}
	}

	autoStart := false
	e.ctype = finished.Toggle()
	if e.ctype == model.CountdownBreak {
		autoStart = e.schedule.AutoStartBreak
	} else {
		if e.schedule.IsLastRound(e.round) {
			e.round = 0
		} else {
			e.round++
		}
		autoStart = e.schedule.AutoStartNextRound
	}

	e.logger.Info().
		Str("finished", finished.String()).
		Str("next", e.ctype.String()).
		Int("round", e.round).
		Bool("auto_start", autoStart).
		Msg("Interval finished")

	e.resetRoundLocked(ctx, false)
	e.observer.OnTypeChanged(e.snapshotLocked())

	if autoStart {
		if err := e.startLocked(ctx); err != nil {
			e.logger.Error().Err(err).Msg("Failed to auto-start next interval")
		}
	}
}

func (e *Engine) startClockLocked() {
	e.gen++
	gen := e.gen
	e.ticker.Start(tickInterval, func() { e.tick(gen) })
}

func (e *Engine) stopClockLocked() {
	e.gen++
	e.ticker.Stop()
}

func (e *Engine) scheduleReminderLocked(ctx context.Context, timeLeft int) {
	if e.reminders == nil || !e.schedule.NotificationsEnabled {
		return
	}

	after := time.Duration(timeLeft) * time.Second
	req := reminder.Request{
		ID:       uuid.NewString(),
		Label:    e.ctype.String(),
		Title:    e.appName,
		Subtitle: fmt.Sprintf("%s time is over!", e.ctype.Label()),
		After:    &after,
	}
	if err := e.reminders.Schedule(ctx, req); err != nil {
		e.logger.Error().Err(err).Str("label", req.Label).Msg("Failed to schedule reminder")
		return
	}
	if err := e.prefs.SetReminderID(ctx, req.ID); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to store reminder id")
	}
}

func (e *Engine) cancelRemindersLocked(ctx context.Context) {
	if e.reminders == nil {
		return
	}
	if err := e.reminders.CancelAll(ctx); err != nil {
		e.logger.Error().Err(err).Msg("Failed to cancel reminders")
	}
}

func (e *Engine) clearCheckpointLocked(ctx context.Context) {
	if err := e.prefs.ClearCheckpoint(ctx); err != nil {
		e.logger.Error().Err(err).Msg("Failed to clear resume checkpoint")
	}
}

func (e *Engine) setStateLocked(state model.CountdownState) {
	e.state = state
	metrics.SessionTransitions.WithLabelValues(state.String()).Inc()
	e.observer.OnStateChanged(e.snapshotLocked())
}

func (e *Engine) timeLeftLocked() int {
	return e.schedule.ScheduledSeconds(e.ctype, e.round) - e.elapsed
}

func (e *Engine) snapshotLocked() model.SessionSnapshot {
	timeLeft := e.timeLeftLocked()
	snapshot := model.SessionSnapshot{
		State:            e.state,
		Type:             e.ctype,
		CurrentRound:     e.round,
		RoundsPerSession: e.schedule.RoundsPerSession,
		IsLastRound:      e.schedule.IsLastRound(e.round),
		SecondsElapsed:   e.elapsed,
		TimeLeft:         timeLeft,
		Clock:            model.FormatClock(timeLeft),
	}
	if e.startedAt != nil {
		startedAt := *e.startedAt
		snapshot.StartedAt = &startedAt
	}
	return snapshot
}
