// Package reminder schedules local notifications for countdowns that are
// expected to finish. Delivery itself is up to the Notifier.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/metrics"
)

// Request asks for one notification. A nil After fires immediately.
type Request struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	After    *time.Duration `json:"after,omitempty"`
}

type Notification struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	FiredAt  time.Time `json:"firedAt"`
}

type Dispatcher interface {
	Schedule(ctx context.Context, req Request) error
	CancelAll(ctx context.Context) error
}

// Notifier delivers a fired reminder.
type Notifier func(Notification)

// Local fires reminders from in-process timers. Each request is delivered at
// most once and never after CancelAll.
type Local struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	notify  Notifier
	logger  zerolog.Logger
}

func NewLocal(notify Notifier, logger zerolog.Logger) *Local {
	return &Local{
		pending: make(map[string]*time.Timer),
		notify:  notify,
		logger:  logger.With().Str("component", "reminder").Logger(),
	}
}

func (d *Local) Schedule(_ context.Context, req Request) error {
	delay := time.Duration(0)
	if req.After != nil && *req.After > 0 {
		delay = *req.After
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[req.ID]; ok {
		existing.Stop()
	}
	d.pending[req.ID] = time.AfterFunc(delay, func() { d.fire(req) })

	metrics.Reminders.WithLabelValues("scheduled").Inc()
	d.logger.Debug().
		Str("id", req.ID).
		Str("label", req.Label).
		Dur("after", delay).
		Msg("Reminder scheduled")
	return nil
}

func (d *Local) CancelAll(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, timer := range d.pending {
		timer.Stop()
		delete(d.pending, id)
		metrics.Reminders.WithLabelValues("cancelled").Inc()
	}
	return nil
}

// Pending returns the number of reminders that have not fired yet.
func (d *Local) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Local) fire(req Request) {
	d.mu.Lock()
	if _, ok := d.pending[req.ID]; !ok {
		// Cancelled after the timer had already started running.
		d.mu.Unlock()
		return
	}
	delete(d.pending, req.ID)
	d.mu.Unlock()

	metrics.Reminders.WithLabelValues("fired").Inc()
	d.logger.Info().Str("id", req.ID).Str("label", req.Label).Msg("Reminder fired")

	if d.notify != nil {
		d.notify(Notification{
			ID:       req.ID,
			Label:    req.Label,
			Title:    req.Title,
			Subtitle: req.Subtitle,
			FiredAt:  time.Now().UTC(),
		})
	}
}
