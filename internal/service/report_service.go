package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
	"github.com/Rileydk/Pomodoro/internal/metrics"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

var ErrNegativeDuration = errors.New("interval ends before it starts")

const dateLayout = "2006-01-02"

type ReportOptions struct {
	Location        *time.Location
	MaxTries        uint
	InitialInterval time.Duration
	// OnRecorded is called after a record and its rollups are stored.
	OnRecorded func(model.DetailRecord)
	Logger     zerolog.Logger
}

// ReportService turns completed intervals into detail records and
// daily/weekly/monthly rollups, and answers report queries.
type ReportService struct {
	store      storage.RecordStore
	loc        *time.Location
	maxTries   uint
	initial    time.Duration
	onRecorded func(model.DetailRecord)
	logger     zerolog.Logger
	newID      func() string

	// stale is set when a write was given up on, so totals may be missing
	// minutes.
	stale atomic.Bool
}

type ReportStatus struct {
	Stale    bool   `json:"stale"`
	Timezone string `json:"timezone"`
}

type DetailsView struct {
	ReportStatus
	Records []model.DetailRecord `json:"records"`
}

type RollupsView struct {
	ReportStatus
	Rollups []model.PeriodRollup `json:"rollups"`
}

func NewReportService(store storage.RecordStore, opts ReportOptions) *ReportService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 100 * time.Millisecond
	}
	return &ReportService{
		store:      store,
		loc:        opts.Location,
		maxTries:   opts.MaxTries,
		initial:    opts.InitialInterval,
		onRecorded: opts.OnRecorded,
		logger:     opts.Logger.With().Str("component", "reports").Logger(),
		newID:      uuid.NewString,
	}
}

func (s *ReportService) Location() *time.Location {
	return s.loc
}

func (s *ReportService) Stale() bool {
	return s.stale.Load()
}

func (s *ReportService) Status() ReportStatus {
	return ReportStatus{Stale: s.Stale(), Timezone: s.loc.String()}
}

// BuildRecord derives the detail record for an interval. Calendar fields come
// from the local time at start, using the UTC offset in effect at that
// instant.
func (s *ReportService) BuildRecord(start, end time.Time, kind model.RecordKind) (model.DetailRecord, error) {
	if end.Before(start) {
		return model.DetailRecord{}, fmt.Errorf("%w: %s before %s", ErrNegativeDuration, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	local := start.In(s.loc)
	year, month, day := local.Date()
	weekYear, week := local.ISOWeek()
	minutes := int(end.Sub(start) / time.Minute)

	return model.DetailRecord{
		ID:                  s.newID(),
		Kind:                kind,
		StartTimestamp:      start.UTC(),
		EndTimestamp:        end.UTC(),
		StartLocalTimestamp: local,
		StartYear:           year,
		StartMonth:          int(month),
		StartDay:            day,
		StartWeekYear:       weekYear,
		StartWeekOfYear:     week,
		DurationMinutes:     minutes,
	}, nil
}

// RecordInterval appends the interval and adds it to the three rollups. A
// negative interval is logged and dropped. Store failures are retried; once
// retries run out the service is marked stale.
func (s *ReportService) RecordInterval(ctx context.Context, start, end time.Time, kind model.RecordKind) error {
	record, err := s.BuildRecord(start, end, kind)
	if err != nil {
		metrics.RecordFailures.WithLabelValues("invalid").Inc()
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Dropping invalid interval")
		return err
	}
	return s.Record(ctx, record)
}

// Record stores a prepared record. It is safe to call again with the same
// record: the store ignores the duplicate and already applied rollups.
func (s *ReportService) Record(ctx context.Context, record model.DetailRecord) error {
	if err := s.retry(ctx, "append", func() error {
		_, err := s.store.AppendDetail(ctx, record)
		return err
	}); err != nil {
		return fmt.Errorf("append detail: %w", err)
	}

	var errs []error
	for _, rollupKind := range model.RollupKinds {
		period, err := model.PeriodFor(rollupKind, record.StartLocalTimestamp)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		delta := storage.RollupDelta{
			Kind:     rollupKind,
			Period:   period,
			SourceID: record.ID,
		}
		if record.Kind == model.RecordFocus {
			delta.FocusMinutes = record.DurationMinutes
		} else {
			delta.RestMinutes = record.DurationMinutes
		}

		if err := s.retry(ctx, "upsert_"+string(rollupKind), func() error {
			applied, err := s.store.UpsertRollup(ctx, delta)
			if err == nil && !applied {
				s.logger.Debug().Str("id", record.ID).Str("rollup", string(rollupKind)).Msg("Rollup already applied")
			}
			return err
		}); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s rollup: %w", rollupKind, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	metrics.MinutesRecorded.WithLabelValues(string(record.Kind)).Add(float64(record.DurationMinutes))
	s.logger.Info().
		Str("id", record.ID).
		Str("kind", string(record.Kind)).
		Int("minutes", record.DurationMinutes).
		Msg("Interval recorded")

	if s.onRecorded != nil {
		s.onRecorded(record)
	}
	return nil
}

func (s *ReportService) retry(ctx context.Context, stage string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn().Err(err).Str("stage", stage).Dur("retry_in", next).Msg("Record store write failed, retrying")
		}),
	)
	if err != nil {
		s.stale.Store(true)
		metrics.RecordFailures.WithLabelValues(stage).Inc()
		s.logger.Error().Err(err).Str("stage", stage).Msg("Record store write failed, reports marked stale")
	}
	return err
}

// ParseDate reads a YYYY-MM-DD date in the report timezone. An empty string
// means today.
func (s *ReportService) ParseDate(raw string) (time.Time, *apperrors.APIError) {
	if raw == "" {
		return time.Now().In(s.loc), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("invalid_date", "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

// Details returns detail records of one kind whose local start falls in the
// scope period containing date.
func (s *ReportService) Details(ctx context.Context, kind model.RecordKind, scope model.ReportKind, date time.Time) (*DetailsView, *apperrors.APIError) {
	filter, apiErr := s.filter(scope, date, "")
	if apiErr != nil {
		return nil, apiErr
	}

	records, err := s.store.QueryDetails(ctx, storage.DetailQuery{Kind: kind, Filter: &filter})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query details")
		return nil, apperrors.Internal("failed to query records").WithCause(err)
	}
	if records == nil {
		records = []model.DetailRecord{}
	}
	return &DetailsView{ReportStatus: s.Status(), Records: records}, nil
}

// DetailsByDay is Details scoped to one local day.
func (s *ReportService) DetailsByDay(ctx context.Context, kind model.RecordKind, date time.Time) (*DetailsView, *apperrors.APIError) {
	return s.Details(ctx, kind, model.ReportDaily, date)
}

// Rollups returns rollup rows of one kind in the scope period containing
// date, newest first.
func (s *ReportService) Rollups(ctx context.Context, kind model.ReportKind, scope model.ReportKind, date time.Time) (*RollupsView, *apperrors.APIError) {
	if !kind.IsRollup() {
		return nil, apperrors.BadRequest("invalid_kind", fmt.Sprintf("%q is not a rollup kind", kind))
	}
	filter, apiErr := s.filter(scope, date, kind)
	if apiErr != nil {
		return nil, apiErr
	}

	rollups, err := s.store.QueryRollups(ctx, storage.RollupQuery{Kind: kind, Filter: &filter})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query rollups")
		return nil, apperrors.Internal("failed to query rollups").WithCause(err)
	}
	if rollups == nil {
		rollups = []model.PeriodRollup{}
	}
	return &RollupsView{ReportStatus: s.Status(), Rollups: rollups}, nil
}

// Reset deletes every row of the named kinds.
func (s *ReportService) Reset(ctx context.Context, kinds []model.ReportKind) *apperrors.APIError {
	if len(kinds) == 0 {
		return apperrors.BadRequest("invalid_kinds", "at least one report kind is required")
	}
	if err := s.store.Reset(ctx, kinds); err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset reports")
		return apperrors.Internal("failed to reset reports").WithCause(err)
	}

	if coversAll(kinds, model.RollupKinds) {
		s.stale.Store(false)
	}
	s.logger.Warn().Interface("kinds", kinds).Msg("Reports reset")
	return nil
}

func (s *ReportService) filter(scope model.ReportKind, date time.Time, kind model.ReportKind) (model.PeriodFilter, *apperrors.APIError) {
	filter, err := model.NewPeriodFilter(scope, date.In(s.loc))
	if err == nil && kind != "" {
		err = filter.ValidFor(kind)
	}
	if err != nil {
		return model.PeriodFilter{}, apperrors.BadRequest("invalid_scope", err.Error())
	}
	return filter, nil
}

func coversAll(kinds, want []model.ReportKind) bool {
	seen := make(map[model.ReportKind]bool, len(kinds))
	for _, kind := range kinds {
		seen[kind] = true
	}
	for _, kind := range want {
		if !seen[kind] {
			return false
		}
	}
	return true
}
