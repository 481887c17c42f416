package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rileydk/Pomodoro/internal/db"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/repository"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(context.Background(), database, migrationsDir, zerolog.Nop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func detailAt(id string, kind model.RecordKind, local time.Time, minutes int) model.DetailRecord {
	weekYear, week := local.ISOWeek()
	return model.DetailRecord{
		ID:                  id,
		Kind:                kind,
		StartTimestamp:      local.UTC(),
		EndTimestamp:        local.Add(time.Duration(minutes) * time.Minute).UTC(),
		StartLocalTimestamp: local,
		StartYear:           local.Year(),
		StartMonth:          int(local.Month()),
		StartDay:            local.Day(),
		StartWeekYear:       weekYear,
		StartWeekOfYear:     week,
		DurationMinutes:     minutes,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database := openTestDB(t)

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	applied, err := db.RunMigrations(context.Background(), database, migrationsDir, zerolog.Nop())
	if err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing to apply on rerun, got %v", applied)
	}
}

func TestPreferenceRepository(t *testing.T) {
	repo := repository.NewPreferenceRepository(openTestDB(t))
	ctx := context.Background()

	if _, err := repo.Get(ctx, "sessionStartedAt"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Set(ctx, "sessionStartedAt", []byte(`"2024-01-01T00:00:00Z"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, "sessionStartedAt", []byte(`"2024-01-02T00:00:00Z"`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, err := repo.Get(ctx, "sessionStartedAt")
	if err != nil || string(value) != `"2024-01-02T00:00:00Z"` {
		t.Fatalf("expected last write, got %s (%v)", value, err)
	}
	if err := repo.Remove(ctx, "sessionStartedAt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := repo.Get(ctx, "sessionStartedAt"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestRecordRepositoryDetails(t *testing.T) {
	repo := repository.NewRecordRepository(openTestDB(t))
	ctx := context.Background()

	loc := time.FixedZone("UTC+8", 8*3600)
	morning := time.Date(2024, time.February, 29, 9, 0, 0, 0, loc)
	evening := time.Date(2024, time.February, 29, 21, 0, 0, 0, loc)
	nextDay := time.Date(2024, time.March, 1, 9, 0, 0, 0, loc)

	for i, local := range []time.Time{morning, evening, nextDay} {
		record := detailAt(string(rune('a'+i)), model.RecordFocus, local, 25)
		if created, err := repo.AppendDetail(ctx, record); err != nil || !created {
			t.Fatalf("append %s: created=%v err=%v", record.ID, created, err)
		}
	}
	if created, err := repo.AppendDetail(ctx, detailAt("a", model.RecordFocus, morning, 25)); err != nil || created {
		t.Fatalf("duplicate append: created=%v err=%v", created, err)
	}

	filter, _ := model.NewPeriodFilter(model.ReportDaily, morning)
	records, err := repo.QueryDetails(ctx, storage.DetailQuery{Kind: model.RecordFocus, Filter: &filter})
	if err != nil {
		t.Fatalf("query details: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records on Feb 29, got %d", len(records))
	}
	if records[0].ID != "b" || records[1].ID != "a" {
		t.Fatalf("expected newest first, got %s then %s", records[0].ID, records[1].ID)
	}
	if _, offset := records[1].StartLocalTimestamp.Zone(); offset != 8*3600 {
		t.Fatalf("expected local offset preserved, got %d", offset)
	}
	if !records[1].StartTimestamp.Equal(morning) {
		t.Fatalf("unexpected start %s", records[1].StartTimestamp)
	}

	all, err := repo.QueryDetails(ctx, storage.DetailQuery{Kind: model.RecordFocus})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 records without filter, got %d (%v)", len(all), err)
	}
}

func TestRecordRepositoryRollups(t *testing.T) {
	repo := repository.NewRecordRepository(openTestDB(t))
	ctx := context.Background()

	day := time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC)
	for i, minutes := range []int{25, 15} {
		for _, kind := range model.RollupKinds {
			period, _ := model.PeriodFor(kind, day)
			delta := storage.RollupDelta{Kind: kind, Period: period, FocusMinutes: minutes, SourceID: string(rune('a' + i))}
			if _, err := repo.UpsertRollup(ctx, delta); err != nil {
				t.Fatalf("upsert %s: %v", kind, err)
			}
		}
	}
	period, _ := model.PeriodFor(model.ReportDaily, day)
	replay := storage.RollupDelta{Kind: model.ReportDaily, Period: period, FocusMinutes: 25, SourceID: "a"}
	if applied, err := repo.UpsertRollup(ctx, replay); err != nil || applied {
		t.Fatalf("replayed upsert: applied=%v err=%v", applied, err)
	}

	for _, kind := range model.RollupKinds {
		rows, err := repo.QueryRollups(ctx, storage.RollupQuery{Kind: kind})
		if err != nil {
			t.Fatalf("query %s: %v", kind, err)
		}
		if len(rows) != 1 || rows[0].FocusTotalMinutes != 40 {
			t.Fatalf("expected one %s row with 40 minutes, got %+v", kind, rows)
		}
	}

	if err := repo.Reset(ctx, []model.ReportKind{model.ReportDaily}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	daily, _ := repo.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportDaily})
	weekly, _ := repo.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportWeekly})
	monthly, _ := repo.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportMonthly})
	if len(daily) != 0 || len(weekly) != 1 || len(monthly) != 1 {
		t.Fatalf("expected only daily rows removed, got %d/%d/%d", len(daily), len(weekly), len(monthly))
	}
}

func TestRecordRepositoryConcurrentUpserts(t *testing.T) {
	repo := repository.NewRecordRepository(openTestDB(t))
	ctx := context.Background()
	period, _ := model.PeriodFor(model.ReportMonthly, time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := storage.RollupDelta{Kind: model.ReportMonthly, Period: period, RestMinutes: 5, SourceID: string(rune('A' + i))}
			if _, err := repo.UpsertRollup(ctx, delta); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	rows, err := repo.QueryRollups(ctx, storage.RollupQuery{Kind: model.ReportMonthly})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0].RestTotalMinutes != 100 {
		t.Fatalf("expected 100 rest minutes, got %+v", rows)
	}
}
