package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/storage"
)

type recordStore struct {
	client       *redis.Client
	prefix       string
	appendDetail *redis.Script
	upsertRollup *redis.Script
}

func newRecordStore(client *redis.Client, prefix string) *recordStore {
	return &recordStore{
		client:       client,
		prefix:       prefix,
		appendDetail: redis.NewScript(appendDetailScript),
		upsertRollup: redis.NewScript(upsertRollupScript),
	}
}

func (s *recordStore) detailKey(id string) string {
	return fmt.Sprintf("%s:detail:%s", s.prefix, id)
}

func (s *recordStore) detailIndexKey(kind model.RecordKind) string {
	return fmt.Sprintf("%s:details:%s", s.prefix, kind)
}

func (s *recordStore) rollupKey(kind model.ReportKind, periodKey string) string {
	return fmt.Sprintf("%s:rollup:%s:%s", s.prefix, kind, periodKey)
}

func (s *recordStore) rollupIndexKey(kind model.ReportKind) string {
	return fmt.Sprintf("%s:rollups:%s", s.prefix, kind)
}

func (s *recordStore) appliedKey(kind model.ReportKind) string {
	return fmt.Sprintf("%s:rollups:%s:applied", s.prefix, kind)
}

func (s *recordStore) AppendDetail(ctx context.Context, record model.DetailRecord) (bool, error) {
	keys := []string{s.detailKey(record.ID), s.detailIndexKey(record.Kind)}
	args := []interface{}{
		record.ID,
		string(record.Kind),
		record.StartTimestamp.UTC().Format(time.RFC3339Nano),
		record.EndTimestamp.UTC().Format(time.RFC3339Nano),
		record.StartLocalTimestamp.Format(time.RFC3339Nano),
		record.StartYear,
		record.StartMonth,
		record.StartDay,
		record.StartWeekYear,
		record.StartWeekOfYear,
		record.DurationMinutes,
		record.StartTimestamp.UnixMilli(),
	}

	created, err := s.appendDetail.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("append detail: %w", err)
	}
	return created == 1, nil
}

func (s *recordStore) UpsertRollup(ctx context.Context, delta storage.RollupDelta) (bool, error) {
	if !delta.Kind.IsRollup() {
		return false, fmt.Errorf("upsert rollup: %w", model.ErrUnknownReportKind)
	}

	periodKey := delta.Period.Key(delta.Kind)
	keys := []string{
		s.rollupKey(delta.Kind, periodKey),
		s.rollupIndexKey(delta.Kind),
		s.appliedKey(delta.Kind),
	}
	args := []interface{}{
		delta.SourceID,
		string(delta.Kind),
		periodKey,
		delta.Period.Year,
		delta.Period.Month,
		delta.Period.Day,
		delta.Period.WeekYear,
		delta.Period.WeekOfYear,
		delta.Period.Date.Format(time.RFC3339Nano),
		delta.FocusMinutes,
		delta.RestMinutes,
	}

	applied, err := s.upsertRollup.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("upsert rollup: %w", err)
	}
	return applied == 1, nil
}

func (s *recordStore) QueryDetails(ctx context.Context, query storage.DetailQuery) ([]model.DetailRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.detailIndexKey(query.Kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.detailKey(id))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load details: %w", err)
	}

	records := make([]model.DetailRecord, 0, len(ids))
	for _, cmd := range cmds {
		record, err := parseDetailRecord(cmd.Val())
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if storage.MatchDetail(query, *record) {
			records = append(records, *record)
		}
	}
	storage.SortDetails(records)
	return records, nil
}

func (s *recordStore) QueryRollups(ctx context.Context, query storage.RollupQuery) ([]model.PeriodRollup, error) {
	periodKeys, err := s.client.SMembers(ctx, s.rollupIndexKey(query.Kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("list rollups: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(periodKeys))
	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, periodKey := range periodKeys {
			cmds[i] = pipe.HGetAll(ctx, s.rollupKey(query.Kind, periodKey))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load rollups: %w", err)
	}

	rollups := make([]model.PeriodRollup, 0, len(periodKeys))
	for _, cmd := range cmds {
		rollup, err := parsePeriodRollup(cmd.Val())
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if storage.MatchRollup(query, *rollup) {
			rollups = append(rollups, *rollup)
		}
	}
	storage.SortRollups(rollups)
	return rollups, nil
}

func (s *recordStore) Reset(ctx context.Context, kinds []model.ReportKind) error {
	var doomed []string

	for _, kind := range storage.RollupKindsOf(kinds) {
		periodKeys, err := s.client.SMembers(ctx, s.rollupIndexKey(kind)).Result()
		if err != nil {
			return fmt.Errorf("list %s rollups: %w", kind, err)
		}
		for _, periodKey := range periodKeys {
			doomed = append(doomed, s.rollupKey(kind, periodKey))
		}
		doomed = append(doomed, s.rollupIndexKey(kind), s.appliedKey(kind))
	}

	for _, kind := range storage.DetailKinds(kinds) {
		ids, err := s.client.ZRange(ctx, s.detailIndexKey(kind), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("list %s details: %w", kind, err)
		}
		for _, id := range ids {
			doomed = append(doomed, s.detailKey(id))
		}
		doomed = append(doomed, s.detailIndexKey(kind))
	}

	if len(doomed) == 0 {
		return nil
	}
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range doomed {
			pipe.Del(ctx, key)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("reset reports: %w", err)
	}
	return nil
}

