package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/reminder"
)

// Observer receives engine events. Callbacks run while the engine holds its
// lock, so they must return quickly and must not call back into the engine.
type Observer interface {
	OnTick(snapshot model.SessionSnapshot)
	OnStateChanged(snapshot model.SessionSnapshot)
	OnTypeChanged(snapshot model.SessionSnapshot)
}

type nopObserver struct{}

func (nopObserver) OnTick(model.SessionSnapshot)         {}
func (nopObserver) OnStateChanged(model.SessionSnapshot) {}
func (nopObserver) OnTypeChanged(model.SessionSnapshot)  {}

type EventKind string

const (
	EventTick     EventKind = "tick"
	EventState    EventKind = "state"
	EventType     EventKind = "type"
	EventReminder EventKind = "reminder"
	EventRecord   EventKind = "record"
)

type Event struct {
	Kind         EventKind              `json:"kind"`
	At           time.Time              `json:"at"`
	Snapshot     *model.SessionSnapshot `json:"snapshot,omitempty"`
	Notification *reminder.Notification `json:"notification,omitempty"`
	Record       *model.DetailRecord    `json:"record,omitempty"`
}

// Broadcaster fans engine events and fired reminders out to subscribers.
// Slow subscribers lose events instead of blocking the engine.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	logger zerolog.Logger
}

func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[int]chan Event),
		logger: logger.With().Str("component", "broadcaster").Logger(),
	}
}

// Subscribe returns an event channel and a function that closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug().Int("subscriber", id).Str("kind", string(ev.Kind)).Msg("Dropping event for slow subscriber")
		}
	}
}

func (b *Broadcaster) publishSnapshot(kind EventKind, snapshot model.SessionSnapshot) {
	b.Publish(Event{Kind: kind, At: time.Now().UTC(), Snapshot: &snapshot})
}

func (b *Broadcaster) OnTick(snapshot model.SessionSnapshot) {
	b.publishSnapshot(EventTick, snapshot)
}

func (b *Broadcaster) OnStateChanged(snapshot model.SessionSnapshot) {
	b.publishSnapshot(EventState, snapshot)
}

func (b *Broadcaster) OnTypeChanged(snapshot model.SessionSnapshot) {
	b.publishSnapshot(EventType, snapshot)
}

// Notify is a reminder.Notifier.
func (b *Broadcaster) Notify(n reminder.Notification) {
	b.Publish(Event{Kind: EventReminder, At: n.FiredAt, Notification: &n})
}

// Recorded publishes a stored detail record.
func (b *Broadcaster) Recorded(record model.DetailRecord) {
	b.Publish(Event{Kind: EventRecord, At: time.Now().UTC(), Record: &record})
}
