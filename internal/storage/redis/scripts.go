package redis

const (
	// appendDetailScript stores a detail record and indexes it by start time.
	// Returns 0 when the record already exists.
	appendDetailScript = `
local detail_key = KEYS[1]    -- {prefix}:detail:{id}
local index_key = KEYS[2]     -- {prefix}:details:{kind}

if redis.call('EXISTS', detail_key) == 1 then
  return 0
end

redis.call('HSET', detail_key,
  'id', ARGV[1],
  'kind', ARGV[2],
  'start', ARGV[3],
  'end', ARGV[4],
  'start_local', ARGV[5],
  'year', ARGV[6],
  'month', ARGV[7],
  'day', ARGV[8],
  'week_year', ARGV[9],
  'week', ARGV[10],
  'duration_minutes', ARGV[11]
)
redis.call('ZADD', index_key, ARGV[12], ARGV[1])

return 1
`

	// upsertRollupScript atomically increments or creates a rollup row. The
	// applied set makes the increment at-most-once per source interval.
	upsertRollupScript = `
local rollup_key = KEYS[1]    -- {prefix}:rollup:{kind}:{periodKey}
local index_key = KEYS[2]     -- {prefix}:rollups:{kind}
local applied_key = KEYS[3]   -- {prefix}:rollups:{kind}:applied

local source_id = ARGV[1]
local focus = tonumber(ARGV[10])
local rest = tonumber(ARGV[11])

if source_id ~= '' then
  if redis.call('SADD', applied_key, source_id) == 0 then
    return 0
  end
end

if redis.call('EXISTS', rollup_key) == 0 then
  redis.call('HSET', rollup_key,
    'kind', ARGV[2],
    'key', ARGV[3],
    'year', ARGV[4],
    'month', ARGV[5],
    'day', ARGV[6],
    'week_year', ARGV[7],
    'week', ARGV[8],
    'date', ARGV[9],
    'focus_total_minutes', focus,
    'rest_total_minutes', rest
  )
  redis.call('SADD', index_key, ARGV[3])
else
  redis.call('HINCRBY', rollup_key, 'focus_total_minutes', focus)
  redis.call('HINCRBY', rollup_key, 'rest_total_minutes', rest)
end

return 1
`
)
