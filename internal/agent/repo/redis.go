package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	logx "github.com/blogflow/server/pkg/logger"
)

// saveScript writes the state only when the stored version matches the
// caller's (absent key matches version 0) and refreshes the TTL.
var saveScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if (not cur and ARGV[1] ~= '0') or (cur and cur ~= ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[2], 'state', ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

type RedisStateStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStateStore(rdb redis.Cmdable, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStateStore) runKey(runID string) string {
	return fmt.Sprintf("blogflow:run:%s", runID)
}

func (r *RedisStateStore) Load(ctx context.Context, runID string) (*model.WorkflowState, error) {
	key := r.runKey(runID)

	raw, err := r.rdb.HGet(ctx, key, "state").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.NotFound(fmt.Errorf("%w: %s", errx.ErrRunNotFound, runID))
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load run state from redis")
		return nil, errx.WrapRedis(err)
	}

	var state model.WorkflowState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to unmarshal run state")
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return &state, nil
}

func (r *RedisStateStore) Save(ctx context.Context, state *model.WorkflowState) error {
	next := *state
	next.Version = state.Version + 1
	b, err := json.Marshal(&next)
	if err != nil {
		logx.Error().Err(err).Str("run_id", state.RunID).Msg("failed to marshal run state")
		return fmt.Errorf("marshal run state: %w", err)
	}
	key := r.runKey(state.RunID)

	ok, err := saveScript.Run(ctx, r.rdb, []string{key},
		strconv.FormatInt(state.Version, 10),
		strconv.FormatInt(next.Version, 10),
		string(b),
		r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save run state to redis")
		return errx.WrapRedis(err)
	}
	if ok == 0 {
		logx.Warn().Str("run_id", state.RunID).Int64("version", state.Version).Msg("run state version conflict")
		return errx.Conflict(errx.ErrVersionConflict)
	}
	state.Version = next.Version
	return nil
}

func (r *RedisStateStore) Delete(ctx context.Context, runID string) error {
	key := r.runKey(runID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete run state from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.StateStore = (*RedisStateStore)(nil)
