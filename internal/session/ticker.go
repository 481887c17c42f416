package session

import (
	"sync"
	"time"
)

// Ticker delivers periodic callbacks on its own goroutine. Start replaces
// any running schedule. Stop must not wait for an in-flight callback.
type Ticker interface {
	Start(interval time.Duration, fn func())
	Stop()
}

// IntervalTicker is a Ticker backed by time.Ticker.
type IntervalTicker struct {
	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

func NewIntervalTicker() *IntervalTicker {
	return &IntervalTicker{}
}

func (t *IntervalTicker) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	t.ticker = ticker
	t.done = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (t *IntervalTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *IntervalTicker) stopLocked() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
	t.done = nil
}
