package storage

import (
	"os"
	"sort"

	"github.com/Rileydk/Pomodoro/internal/model"
)

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MatchDetail reports whether a record satisfies the query.
func MatchDetail(query DetailQuery, record model.DetailRecord) bool {
	if record.Kind != query.Kind {
		return false
	}
	return query.Filter == nil || query.Filter.Matches(record.Period())
}

// MatchRollup reports whether a rollup row satisfies the query.
func MatchRollup(query RollupQuery, rollup model.PeriodRollup) bool {
	if rollup.Kind != query.Kind {
		return false
	}
	return query.Filter == nil || query.Filter.Matches(rollup.Period)
}

func SortDetails(records []model.DetailRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTimestamp.After(records[j].StartTimestamp)
	})
}

func SortRollups(rollups []model.PeriodRollup) {
	sort.SliceStable(rollups, func(i, j int) bool {
		return rollups[i].Date.After(rollups[j].Date)
	})
}

// DetailKinds and RollupKindsOf split a reset request into detail and
// rollup kinds.
func DetailKinds(kinds []model.ReportKind) []model.RecordKind {
	var out []model.RecordKind
	for _, kind := range kinds {
		if recordKind, ok := kind.RecordKind(); ok {
			out = append(out, recordKind)
		}
	}
	return out
}

func RollupKindsOf(kinds []model.ReportKind) []model.ReportKind {
	var out []model.ReportKind
	for _, kind := range kinds {
		if kind.IsRollup() {
			out = append(out, kind)
		}
	}
	return out
}
