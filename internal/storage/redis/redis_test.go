package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Rileydk/Pomodoro/internal/config"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() already includes the port
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func detailAt(id string, kind model.RecordKind, start time.Time, minutes int) model.DetailRecord {
	year, week := start.ISOWeek()
	return model.DetailRecord{
		ID:                  id,
		Kind:                kind,
		StartTimestamp:      start.UTC(),
		EndTimestamp:        start.Add(time.Duration(minutes) * time.Minute).UTC(),
		StartLocalTimestamp: start,
		StartYear:           start.Year(),
		StartMonth:          int(start.Month()),
		StartDay:            start.Day(),
		StartWeekYear:       year,
		StartWeekOfYear:     week,
		DurationMinutes:     minutes,
	}
}

func TestPreferenceStore(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "flowDuration"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "flowDuration", []byte("[50]")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("pomodoro:pref:flowDuration"); got != "[50]" {
		t.Fatalf("unexpected raw value %q", got)
	}
	value, err := store.Get(ctx, "flowDuration")
	if err != nil || string(value) != "[50]" {
		t.Fatalf("expected [50], got %q (%v)", value, err)
	}
	if err := store.Remove(ctx, "flowDuration"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mr.Exists("pomodoro:pref:flowDuration") {
		t.Fatal("expected key removed")
	}
}

func TestRecordStore_AppendDetailIsIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	records := store.Records()

	base := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)
	first := detailAt("rec-1", model.RecordFocus, base, 25)
	second := detailAt("rec-2", model.RecordFocus, base.Add(time.Hour), 15)
	rest := detailAt("rec-3", model.RecordRest, base.Add(30*time.Minute), 5)

	for _, record := range []model.DetailRecord{first, second, rest} {
		created, err := records.AppendDetail(ctx, record)
		if err != nil || !created {
			t.Fatalf("append %s: created=%v err=%v", record.ID, created, err)
		}
	}
	created, err := records.AppendDetail(ctx, first)
	if err != nil {
		t.Fatalf("re-append: %v", err)
	}
	if created {
		t.Fatal("expected duplicate append to be ignored")
	}

	filter, _ := model.NewPeriodFilter(model.ReportDaily, base)
	got, err := records.QueryDetails(ctx, storage.DetailQuery{Kind: model.RecordFocus, Filter: &filter})
	if err != nil {
		t.Fatalf("query details: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 focus records, got %d", len(got))
	}
	if got[0].ID != "rec-2" || got[1].ID != "rec-1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].DurationMinutes != 25 || !got[1].StartTimestamp.Equal(base) {
		t.Fatalf("unexpected record %+v", got[1])
	}
}

func TestRecordStore_UpsertRollup(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	records := store.Records()

	day := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)
	period, err := model.PeriodFor(model.ReportDaily, day)
	if err != nil {
		t.Fatalf("period: %v", err)
	}

	deltas := []storage.RollupDelta{
		{Kind: model.ReportDaily, Period: period, FocusMinutes: 25, SourceID: "a"},
		{Kind: model.ReportDaily, Period: period, FocusMinutes: 15, SourceID: "b"},
		{Kind: model.ReportDaily, Period: period, RestMinutes: 5, SourceID: "c"},
		{Kind: model.ReportDaily, Period: period, FocusMinutes: 25, SourceID: "a"},
	}
	for _, delta := range deltas {
		if _, err := records.UpsertRollup(ctx, delta); err != nil {
			t.Fatalf("upsert %s: %v", delta.SourceID, err)
		}
	}

	rows, err := records.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportDaily})
	if err != nil {
		t.Fatalf("query rollups: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 daily row, got %d", len(rows))
	}
	if rows[0].FocusTotalMinutes != 40 || rows[0].RestTotalMinutes != 5 {
		t.Fatalf("expected 40/5 minutes, got %d/%d", rows[0].FocusTotalMinutes, rows[0].RestTotalMinutes)
	}
	if rows[0].Key != "2024-04-02" || !rows[0].Date.Equal(period.Date) {
		t.Fatalf("unexpected row identity %+v", rows[0])
	}
}

func TestRecordStore_ResetOnlyNamedKinds(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	records := store.Records()

	local := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)
	for _, kind := range model.RollupKinds {
		period, _ := model.PeriodFor(kind, local)
		if _, err := records.UpsertRollup(ctx, storage.RollupDelta{Kind: kind, Period: period, FocusMinutes: 25, SourceID: "a"}); err != nil {
			t.Fatalf("upsert %s: %v", kind, err)
		}
	}
	if _, err := records.AppendDetail(ctx, detailAt("rec-1", model.RecordFocus, local, 25)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := records.Reset(ctx, []model.ReportKind{model.ReportDaily, model.ReportFocus}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	daily, _ := records.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportDaily})
	weekly, _ := records.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportWeekly})
	monthly, _ := records.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportMonthly})
	details, _ := records.QueryDetails(ctx, storage.DetailQuery{Kind: model.RecordFocus})
	if len(daily) != 0 || len(details) != 0 {
		t.Fatalf("expected daily rows and focus details removed, got %d/%d", len(daily), len(details))
	}
	if len(weekly) != 1 || len(monthly) != 1 {
		t.Fatalf("expected weekly and monthly rows kept, got %d/%d", len(weekly), len(monthly))
	}
	if mr.Exists("pomodoro:detail:rec-1") {
		t.Fatal("expected detail hash deleted")
	}
}
