package session

import (
	"context"
	"math"
	"time"

	"github.com/Rileydk/Pomodoro/internal/model"
)

// EnterBackground stops ticking. The checkpoint is kept so a running
// countdown can be reconciled on return.
func (e *Engine) EnterBackground() model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.logger.Debug().Str("state", e.state.String()).Msg("Entered background")
	return e.snapshotLocked()
}

// EnterForeground rebuilds the elapsed time of a running countdown from the
// wall clock. A countdown that ran out while in the background finishes
// immediately.
func (e *Engine) EnterForeground(ctx context.Context) model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.StateCounting {
		return e.snapshotLocked()
	}
	startedAt, ok, err := e.prefs.Checkpoint(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to read resume checkpoint")
		return e.snapshotLocked()
	}
	if !ok {
		return e.snapshotLocked()
	}

	elapsed := int(math.Round(e.now().Sub(startedAt).Seconds()))
	if elapsed < 0 {
		e.logger.Warn().Time("started_at", startedAt).Msg("Checkpoint is in the future")
		elapsed = 0
	}
	e.elapsed = elapsed
	e.startedAt = &startedAt

	scheduledSeconds := e.schedule.ScheduledSeconds(e.ctype, e.round)
	if scheduledSeconds-elapsed > 0 {
		e.startClockLocked()
		e.logger.Debug().Int("elapsed", elapsed).Msg("Resumed countdown from checkpoint")
		e.observer.OnTick(e.snapshotLocked())
		return e.snapshotLocked()
	}

	e.elapsed = scheduledSeconds
	e.logger.Info().Int("overdue", elapsed-scheduledSeconds).Msg("Countdown finished while in background")
	// The record outlives the caller's request.
	e.finishLocked(e.ctx, startedAt.Add(time.Duration(scheduledSeconds)*time.Second))
	return e.snapshotLocked()
}

// Terminate stops the clock, cancels pending reminders and clears the
// checkpoint before the process exits.
func (e *Engine) Terminate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopClockLocked()
	e.cancelRemindersLocked(ctx)
	e.clearCheckpointLocked(ctx)
	e.logger.Info().Str("state", e.state.String()).Msg("Session terminated")
}
