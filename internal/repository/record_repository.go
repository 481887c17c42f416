package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *RecordRepository) AppendDetail(ctx context.Context, record model.DetailRecord) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		`INSERT INTO detail_records (
			id, kind, start_at, end_at, start_local, start_year, start_month,
			start_day, start_week_year, start_week, duration_minutes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		record.ID,
		record.Kind,
		formatTime(record.StartTimestamp),
		formatTime(record.EndTimestamp),
		formatLocalTime(record.StartLocalTimestamp),
		record.StartYear,
		record.StartMonth,
		record.StartDay,
		record.StartWeekYear,
		record.StartWeekOfYear,
		record.DurationMinutes,
		formatTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("append detail: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append detail rows: %w", err)
	}
	return affected == 1, nil
}

func (r *RecordRepository) UpsertRollup(ctx context.Context, delta storage.RollupDelta) (bool, error) {
	if !delta.Kind.IsRollup() {
		return false, fmt.Errorf("upsert rollup: %w", model.ErrUnknownReportKind)
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	applied, err := r.markAppliedTx(ctx, tx, delta)
	if err != nil || !applied {
		return false, err
	}

	if err := r.incrementRollupTx(ctx, tx, delta); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit rollup: %w", err)
	}
	return true, nil
}

// markAppliedTx claims (source, kind). It reports false when the delta was
// applied by an earlier attempt.
func (r *RecordRepository) markAppliedTx(ctx context.Context, tx *sql.Tx, delta storage.RollupDelta) (bool, error) {
	if delta.SourceID == "" {
		return true, nil
	}
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO rollup_applications (source_id, kind, applied_at) VALUES (?, ?, ?)
		 ON CONFLICT(source_id, kind) DO NOTHING`,
		delta.SourceID,
		delta.Kind,
		formatTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("mark rollup applied: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark rollup applied rows: %w", err)
	}
	return affected == 1, nil
}

func (r *RecordRepository) incrementRollupTx(ctx context.Context, tx *sql.Tx, delta storage.RollupDelta) error {
	p := delta.Period
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO report_rollups (
			kind, period_key, year, month, day, week_year, week, period_date,
			focus_total_minutes, rest_total_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, period_key) DO UPDATE SET
			focus_total_minutes = report_rollups.focus_total_minutes + excluded.focus_total_minutes,
			rest_total_minutes = report_rollups.rest_total_minutes + excluded.rest_total_minutes,
			updated_at = excluded.updated_at`,
		delta.Kind,
		p.Key(delta.Kind),
		p.Year,
		p.Month,
		p.Day,
		p.WeekYear,
		p.WeekOfYear,
		formatLocalTime(p.Date),
		delta.FocusMinutes,
		delta.RestMinutes,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("increment rollup: %w", err)
	}
	return nil
}

func (r *RecordRepository) QueryDetails(ctx context.Context, query storage.DetailQuery) ([]model.DetailRecord, error) {
	where, args := periodClause(query.Filter, "start_year", "start_month", "start_day", "start_week_year", "start_week")
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, kind, start_at, end_at, start_local, start_year, start_month,
		        start_day, start_week_year, start_week, duration_minutes
		 FROM detail_records
		 WHERE kind = ?`+where+`
		 ORDER BY start_at DESC`,
		append([]interface{}{query.Kind}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	defer rows.Close()

	records := make([]model.DetailRecord, 0)
	for rows.Next() {
		record, scanErr := scanDetailRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate details: %w", err)
	}
	return records, nil
}

func (r *RecordRepository) QueryRollups(ctx context.Context, query storage.RollupQuery) ([]model.PeriodRollup, error) {
	where, args := periodClause(query.Filter, "year", "month", "day", "week_year", "week")
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT kind, period_key, year, month, day, week_year, week, period_date,
		        focus_total_minutes, rest_total_minutes
		 FROM report_rollups
		 WHERE kind = ?`+where+`
		 ORDER BY year DESC, month DESC, day DESC`,
		append([]interface{}{query.Kind}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query rollups: %w", err)
	}
	defer rows.Close()

	rollups := make([]model.PeriodRollup, 0)
	for rows.Next() {
		rollup, scanErr := scanPeriodRollup(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rollups = append(rollups, *rollup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollups: %w", err)
	}
	return rollups, nil
}

func (r *RecordRepository) Reset(ctx context.Context, kinds []model.ReportKind) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, kind := range storage.RollupKindsOf(kinds) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM report_rollups WHERE kind = ?`, kind); err != nil {
			return fmt.Errorf("reset %s rollups: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rollup_applications WHERE kind = ?`, kind); err != nil {
			return fmt.Errorf("reset %s applications: %w", kind, err)
		}
	}
	for _, kind := range storage.DetailKinds(kinds) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM detail_records WHERE kind = ?`, kind); err != nil {
			return fmt.Errorf("reset %s details: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// periodClause turns a filter into an AND clause over the named calendar
// columns: year, month, day, week year, week.
func periodClause(filter *model.PeriodFilter, columns ...string) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	year, month, day, weekYear, week := columns[0], columns[1], columns[2], columns[3], columns[4]

	var conds []string
	var args []interface{}
	switch filter.Scope {
	case model.ReportDaily:
		conds = []string{year + " = ?", month + " = ?", day + " = ?"}
		args = []interface{}{filter.Year, filter.Month, filter.Day}
	case model.ReportWeekly:
		conds = []string{weekYear + " = ?", week + " = ?"}
		args = []interface{}{filter.WeekYear, filter.WeekOfYear}
	case model.ReportMonthly:
		conds = []string{year + " = ?", month + " = ?"}
		args = []interface{}{filter.Year, filter.Month}
	default:
		return " AND 0", nil
	}
	return " AND " + strings.Join(conds, " AND "), args
}

func scanDetailRecord(s scanner) (*model.DetailRecord, error) {
	record := model.DetailRecord{}
	var startAt, endAt, startLocal string
	err := s.Scan(
		&record.ID,
		&record.Kind,
		&startAt,
		&endAt,
		&startLocal,
		&record.StartYear,
		&record.StartMonth,
		&record.StartDay,
		&record.StartWeekYear,
		&record.StartWeekOfYear,
		&record.DurationMinutes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan detail: %w", err)
	}

	if record.StartTimestamp, err = parseTime(startAt); err != nil {
		return nil, fmt.Errorf("parse detail start_at: %w", err)
	}
	if record.EndTimestamp, err = parseTime(endAt); err != nil {
		return nil, fmt.Errorf("parse detail end_at: %w", err)
	}
	if record.StartLocalTimestamp, err = parseLocalTime(startLocal); err != nil {
		return nil, fmt.Errorf("parse detail start_local: %w", err)
	}
	return &record, nil
}

func scanPeriodRollup(s scanner) (*model.PeriodRollup, error) {
	rollup := model.PeriodRollup{}
	var periodDate string
	err := s.Scan(
		&rollup.Kind,
		&rollup.Key,
		&rollup.Year,
		&rollup.Month,
		&rollup.Day,
		&rollup.WeekYear,
		&rollup.WeekOfYear,
		&periodDate,
		&rollup.FocusTotalMinutes,
		&rollup.RestTotalMinutes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan rollup: %w", err)
	}

	if rollup.Date, err = parseLocalTime(periodDate); err != nil {
		return nil, fmt.Errorf("parse rollup period_date: %w", err)
	}
	return &rollup, nil
}
