package model

import (
	"errors"
	"testing"
	"time"
)

func TestScheduledSeconds(t *testing.T) {
	cfg := ScheduleConfig{FocusMinutes: 1, ShortBreakMinutes: 1, LongBreakMinutes: 2, RoundsPerSession: 2}

	tests := []struct {
		name  string
		ctype CountdownType
		round int
		want  int
	}{
		{name: "focus", ctype: CountdownFocus, round: 1, want: 60},
		{name: "focus on last round", ctype: CountdownFocus, round: 2, want: 60},
		{name: "short break", ctype: CountdownBreak, round: 1, want: 60},
		{name: "long break after last round", ctype: CountdownBreak, round: 2, want: 120},
		{name: "round past a shortened session", ctype: CountdownBreak, round: 3, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ScheduledSeconds(tt.ctype, tt.round); got != tt.want {
				t.Fatalf("expected %d seconds, got %d", tt.want, got)
			}
		})
	}
}

func TestScheduleNormalize(t *testing.T) {
	cfg, replaced := ScheduleConfig{FocusMinutes: 50, ShortBreakMinutes: -1, RoundsPerSession: 0}.Normalize()
	if cfg.FocusMinutes != 50 {
		t.Fatalf("expected focus minutes kept, got %d", cfg.FocusMinutes)
	}
	if cfg.ShortBreakMinutes != DefaultShortBreakMinutes || cfg.LongBreakMinutes != DefaultLongBreakMinutes {
		t.Fatalf("expected break defaults, got %+v", cfg)
	}
	if cfg.RoundsPerSession != DefaultRoundsPerSession {
		t.Fatalf("expected default rounds, got %d", cfg.RoundsPerSession)
	}
	if len(replaced) != 3 {
		t.Fatalf("expected 3 replaced fields, got %v", replaced)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("normalized schedule should validate: %v", err)
	}
	if err := (ScheduleConfig{FocusMinutes: 1, ShortBreakMinutes: 1, LongBreakMinutes: 1}).Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestPeriodForAnchors(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// Sunday 2024-03-31 is the DST switch in Berlin and belongs to ISO week 13.
	local := time.Date(2024, time.March, 31, 10, 30, 0, 0, loc)

	daily, err := PeriodFor(ReportDaily, local)
	if err != nil {
		t.Fatalf("daily period: %v", err)
	}
	if daily.Key(ReportDaily) != "2024-03-31" {
		t.Fatalf("unexpected daily key %s", daily.Key(ReportDaily))
	}
	if daily.Date.Hour() != 0 || daily.Date.Location() != loc {
		t.Fatalf("expected local midnight anchor, got %s", daily.Date)
	}

	weekly, err := PeriodFor(ReportWeekly, local)
	if err != nil {
		t.Fatalf("weekly period: %v", err)
	}
	if weekly.Key(ReportWeekly) != "2024-W13" {
		t.Fatalf("unexpected weekly key %s", weekly.Key(ReportWeekly))
	}
	if weekly.Date.Weekday() != time.Monday || weekly.Day != 25 {
		t.Fatalf("expected Monday 25th anchor, got %s", weekly.Date)
	}

	monthly, err := PeriodFor(ReportMonthly, local)
	if err != nil {
		t.Fatalf("monthly period: %v", err)
	}
	if monthly.Key(ReportMonthly) != "2024-03" || monthly.Day != 1 {
		t.Fatalf("unexpected monthly period %+v", monthly)
	}

	if _, err := PeriodFor(ReportFocus, local); !errors.Is(err, ErrUnknownReportKind) {
		t.Fatalf("expected ErrUnknownReportKind, got %v", err)
	}
}

func TestPeriodForISOWeekAcrossYearEnd(t *testing.T) {
	local := time.Date(2021, time.January, 1, 9, 0, 0, 0, time.UTC)
	weekly, err := PeriodFor(ReportWeekly, local)
	if err != nil {
		t.Fatalf("weekly period: %v", err)
	}
	if weekly.Key(ReportWeekly) != "2020-W53" {
		t.Fatalf("expected 2020-W53, got %s", weekly.Key(ReportWeekly))
	}
	if weekly.Year != 2020 || weekly.Month != 12 || weekly.Day != 28 {
		t.Fatalf("unexpected anchor %+v", weekly)
	}
}

func TestPeriodFilter(t *testing.T) {
	ref := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	daily, err := NewPeriodFilter(ReportDaily, ref)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	if err := daily.ValidFor(ReportWeekly); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("daily scope on weekly rows should be rejected, got %v", err)
	}
	if err := daily.ValidFor(ReportFocus); err != nil {
		t.Fatalf("daily scope on detail rows should be valid: %v", err)
	}

	monthly, err := NewPeriodFilter(ReportMonthly, ref)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	if err := monthly.ValidFor(ReportWeekly); err != nil {
		t.Fatalf("monthly scope on weekly rows should be valid: %v", err)
	}

	sameMonth, _ := PeriodFor(ReportDaily, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC))
	otherMonth, _ := PeriodFor(ReportDaily, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
	if !monthly.Matches(sameMonth) {
		t.Fatal("expected May row to match monthly filter")
	}
	if monthly.Matches(otherMonth) {
		t.Fatal("expected June row not to match monthly filter")
	}
	if daily.Matches(sameMonth) {
		t.Fatal("expected May 2 row not to match May 15 daily filter")
	}

	if _, err := NewPeriodFilter(ReportRest, ref); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope for detail scope, got %v", err)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 59: "00:59", 1500: "25:00", 61: "01:01", -3: "00:00"}
	for seconds, want := range cases {
		if got := FormatClock(seconds); got != want {
			t.Fatalf("FormatClock(%d) = %s, want %s", seconds, got, want)
		}
	}
}
