// Package memory provides process-local preference and record stores.
package memory

import (
	"context"
	"sync"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	prefs   map[string][]byte
	details map[string]model.DetailRecord
	rollups map[model.ReportKind]map[string]model.PeriodRollup
	applied map[model.ReportKind]map[string]struct{}
}

func NewStore() *Store {
	s := &Store{
		prefs:   make(map[string][]byte),
		details: make(map[string]model.DetailRecord),
		rollups: make(map[model.ReportKind]map[string]model.PeriodRollup),
		applied: make(map[model.ReportKind]map[string]struct{}),
	}
	for _, kind := range model.RollupKinds {
		s.rollups[kind] = make(map[string]model.PeriodRollup)
		s.applied[kind] = make(map[string]struct{})
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.prefs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prefs, key)
	return nil
}

func (s *Store) AppendDetail(_ context.Context, record model.DetailRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.details[record.ID]; exists {
		return false, nil
	}
	s.details[record.ID] = record
	return true, nil
}

func (s *Store) UpsertRollup(_ context.Context, delta storage.RollupDelta) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.rollups[delta.Kind]
	if !ok {
		return false, model.ErrUnknownReportKind
	}
	if delta.SourceID != "" {
		if _, done := s.applied[delta.Kind][delta.SourceID]; done {
			return false, nil
		}
		s.applied[delta.Kind][delta.SourceID] = struct{}{}
	}

	key := delta.Period.Key(delta.Kind)
	row, exists := rows[key]
	if !exists {
		row = model.PeriodRollup{Kind: delta.Kind, Key: key, Period: delta.Period}
	}
	row.FocusTotalMinutes += delta.FocusMinutes
	row.RestTotalMinutes += delta.RestMinutes
	rows[key] = row
	return true, nil
}

func (s *Store) QueryDetails(_ context.Context, query storage.DetailQuery) ([]model.DetailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.DetailRecord, 0)
	for _, record := range s.details {
		if storage.MatchDetail(query, record) {
			records = append(records, record)
		}
	}
	storage.SortDetails(records)
	return records, nil
}

func (s *Store) QueryRollups(_ context.Context, query storage.RollupQuery) ([]model.PeriodRollup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rollups := make([]model.PeriodRollup, 0)
	for _, row := range s.rollups[query.Kind] {
		if storage.MatchRollup(query, row) {
			rollups = append(rollups, row)
		}
	}
	storage.SortRollups(rollups)
	return rollups, nil
}

func (s *Store) Reset(_ context.Context, kinds []model.ReportKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range storage.RollupKindsOf(kinds) {
		s.rollups[kind] = make(map[string]model.PeriodRollup)
		s.applied[kind] = make(map[string]struct{})
	}
	for _, recordKind := range storage.DetailKinds(kinds) {
		for id, record := range s.details {
			if record.Kind == recordKind {
				delete(s.details, id)
			}
		}
	}
	return nil
}
