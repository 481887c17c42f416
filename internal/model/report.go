package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownRecordKind = errors.New("unknown record kind")
	ErrUnknownReportKind = errors.New("unknown report kind")
	ErrInvalidScope      = errors.New("invalid period scope")
)

type RecordKind string

const (
	RecordFocus RecordKind = "focus"
	RecordRest  RecordKind = "rest"
)

func ParseRecordKind(raw string) (RecordKind, error) {
	switch RecordKind(raw) {
	case RecordFocus, RecordRest:
		return RecordKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRecordKind, raw)
}

type ReportKind string

const (
	ReportDaily   ReportKind = "daily"
	ReportWeekly  ReportKind = "weekly"
	ReportMonthly ReportKind = "monthly"
	ReportFocus   ReportKind = "focus"
	ReportRest    ReportKind = "rest"
)

// RollupKinds lists the aggregated report kinds in order of granularity.
var RollupKinds = []ReportKind{ReportDaily, ReportWeekly, ReportMonthly}

func ParseReportKind(raw string) (ReportKind, error) {
	switch ReportKind(raw) {
	case ReportDaily, ReportWeekly, ReportMonthly, ReportFocus, ReportRest:
		return ReportKind(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReportKind, raw)
}

func (k ReportKind) IsRollup() bool {
	return k.granularity() > 0
}

// RecordKind returns the detail kind for focus and rest reports.
func (k ReportKind) RecordKind() (RecordKind, bool) {
	switch k {
	case ReportFocus:
		return RecordFocus, true
	case ReportRest:
		return RecordRest, true
	}
	return "", false
}

func (k ReportKind) granularity() int {
	switch k {
	case ReportDaily:
		return 1
	case ReportWeekly:
		return 2
	case ReportMonthly:
		return 3
	}
	return 0
}

type DetailRecord struct {
	ID                  string     `json:"id"`
	Kind                RecordKind `json:"kind"`
	StartTimestamp      time.Time  `json:"startTimestamp"`
	EndTimestamp        time.Time  `json:"endTimestamp"`
	StartLocalTimestamp time.Time  `json:"startLocalTimestamp"`
	StartYear           int        `json:"startYear"`
	StartMonth          int        `json:"startMonth"`
	StartDay            int        `json:"startDay"`
	StartWeekYear       int        `json:"startWeekYear"`
	StartWeekOfYear     int        `json:"startWeekOfYear"`
	DurationMinutes     int        `json:"durationMinutes"`
}

// Period returns the calendar fields of the record's local start.
func (r DetailRecord) Period() Period {
	return Period{
		Year:       r.StartYear,
		Month:      r.StartMonth,
		Day:        r.StartDay,
		WeekYear:   r.StartWeekYear,
		WeekOfYear: r.StartWeekOfYear,
		Date:       r.StartLocalTimestamp,
	}
}

// Period identifies a calendar bucket. Weeks follow ISO 8601 numbering, so
// WeekYear can differ from Year around the new year.
type Period struct {
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Day        int       `json:"day"`
	WeekYear   int       `json:"weekYear"`
	WeekOfYear int       `json:"weekOfYear"`
	Date       time.Time `json:"date"`
}

// PeriodFor returns the rollup period of the given kind that contains local.
// The period's Date is its anchor: start of day, the ISO week's Monday, or
// the first of the month, in local's location.
func PeriodFor(kind ReportKind, local time.Time) (Period, error) {
	year, month, day := local.Date()
	loc := local.Location()
	var anchor time.Time
	switch kind {
	case ReportDaily:
		anchor = time.Date(year, month, day, 0, 0, 0, 0, loc)
	case ReportWeekly:
		offset := (int(local.Weekday()) + 6) % 7
		anchor = time.Date(year, month, day-offset, 0, 0, 0, 0, loc)
	case ReportMonthly:
		anchor = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	default:
		return Period{}, fmt.Errorf("%w: %q is not a rollup", ErrUnknownReportKind, kind)
	}
	return periodOf(anchor), nil
}

func periodOf(t time.Time) Period {
	year, month, day := t.Date()
	weekYear, week := t.ISOWeek()
	return Period{
		Year:       year,
		Month:      int(month),
		Day:        day,
		WeekYear:   weekYear,
		WeekOfYear: week,
		Date:       t,
	}
}

// Key is the unique row key of the period for a rollup kind.
func (p Period) Key(kind ReportKind) string {
	switch kind {
	case ReportDaily:
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
	case ReportWeekly:
		return fmt.Sprintf("%04d-W%02d", p.WeekYear, p.WeekOfYear)
	case ReportMonthly:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	}
	return ""
}

type PeriodRollup struct {
	Kind ReportKind `json:"kind"`
	Key  string     `json:"key"`
	Period
	FocusTotalMinutes int `json:"focusTotalMinutes"`
	RestTotalMinutes  int `json:"restTotalMinutes"`
}

// PeriodFilter selects rows whose calendar fields fall in the same day,
// ISO week or month as the filter's reference date.
type PeriodFilter struct {
	Scope ReportKind
	Period
}

func NewPeriodFilter(scope ReportKind, local time.Time) (PeriodFilter, error) {
	if !scope.IsRollup() {
		return PeriodFilter{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return PeriodFilter{Scope: scope, Period: periodOf(local)}, nil
}

// ValidFor rejects a scope finer than the rows it filters: a weekly row has
// no single day to match against.
func (f PeriodFilter) ValidFor(kind ReportKind) error {
	if !f.Scope.IsRollup() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, f.Scope)
	}
	if kind.IsRollup() && f.Scope.granularity() < kind.granularity() {
		return fmt.Errorf("%w: cannot filter %s rows by %s", ErrInvalidScope, kind, f.Scope)
	}
	return nil
}

func (f PeriodFilter) Matches(p Period) bool {
	switch f.Scope {
	case ReportDaily:
		return p.Year == f.Year && p.Month == f.Month && p.Day == f.Day
	case ReportWeekly:
		return p.WeekYear == f.WeekYear && p.WeekOfYear == f.WeekOfYear
	case ReportMonthly:
		return p.Year == f.Year && p.Month == f.Month
	}
	return false
}
