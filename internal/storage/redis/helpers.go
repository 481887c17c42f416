package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

// parseDetailRecord converts a Redis hash to a DetailRecord
func parseDetailRecord(data map[string]string) (*model.DetailRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	start, err := time.Parse(time.RFC3339Nano, data["start"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, data["end"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse end: %w", err)
	}
	startLocal, err := time.Parse(time.RFC3339Nano, data["start_local"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_local: %w", err)
	}

	ints, err := parseInts(data, "year", "month", "day", "week_year", "week", "duration_minutes")
	if err != nil {
		return nil, err
	}

	return &model.DetailRecord{
		ID:                  data["id"],
		Kind:                model.RecordKind(data["kind"]),
		StartTimestamp:      start.UTC(),
		EndTimestamp:        end.UTC(),
		StartLocalTimestamp: startLocal,
		StartYear:           ints[0],
		StartMonth:          ints[1],
		StartDay:            ints[2],
		StartWeekYear:       ints[3],
		StartWeekOfYear:     ints[4],
		DurationMinutes:     ints[5],
	}, nil
}

// parsePeriodRollup converts a Redis hash to a PeriodRollup
func parsePeriodRollup(data map[string]string) (*model.PeriodRollup, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	date, err := time.Parse(time.RFC3339Nano, data["date"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}

	ints, err := parseInts(data, "year", "month", "day", "week_year", "week", "focus_total_minutes", "rest_total_minutes")
	if err != nil {
		return nil, err
	}

	return &model.PeriodRollup{
		Kind: model.ReportKind(data["kind"]),
		Key:  data["key"],
		Period: model.Period{
			Year:       ints[0],
			Month:      ints[1],
			Day:        ints[2],
			WeekYear:   ints[3],
			WeekOfYear: ints[4],
			Date:       date,
		},
		FocusTotalMinutes: ints[5],
		RestTotalMinutes:  ints[6],
	}, nil
}

func parseInts(data map[string]string, fields ...string) ([]int, error) {
	out := make([]int, len(fields))
	for i, field := range fields {
		value, err := strconv.Atoi(data[field])
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", field, err)
		}
		out[i] = value
	}
	return out, nil
}
