package storage

import (
	"context"
	"errors"

	"github.com/Rileydk/Pomodoro/internal/model"
)

// ErrNotFound is returned when a key or record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// PreferenceStore is a durable key/value store. Values are JSON documents;
// the last write to a key wins.
type PreferenceStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// RecordStore holds completed intervals and their daily, weekly and
// monthly rollups.
type RecordStore interface {
	// AppendDetail stores a record once. It reports false when a record
	// with the same ID already exists.
	AppendDetail(ctx context.Context, record model.DetailRecord) (bool, error)
	// UpsertRollup creates or increments the row for delta's period. A delta
	// is applied at most once per (SourceID, Kind); repeats report false.
	UpsertRollup(ctx context.Context, delta RollupDelta) (bool, error)
	// QueryDetails returns matching records, newest start first.
	QueryDetails(ctx context.Context, query DetailQuery) ([]model.DetailRecord, error)
	// QueryRollups returns matching rows, newest period first.
	QueryRollups(ctx context.Context, query RollupQuery) ([]model.PeriodRollup, error)
	// Reset deletes every row of the given kinds.
	Reset(ctx context.Context, kinds []model.ReportKind) error
}

// RollupDelta is one interval's contribution to a rollup row.
type RollupDelta struct {
	Kind         model.ReportKind
	Period       model.Period
	FocusMinutes int
	RestMinutes  int
	SourceID     string
}

type DetailQuery struct {
	Kind   model.RecordKind
	Filter *model.PeriodFilter
}

type RollupQuery struct {
	Kind   model.ReportKind
	Filter *model.PeriodFilter
}
