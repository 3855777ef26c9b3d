package delayqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// RedisQueue stores entries in a sorted set scored by due time in unix
// milliseconds.
type RedisQueue struct {
	client       redis.UniversalClient
	key          string
	pollInterval time.Duration
	batchSize    int64
	now          func() time.Time
	logger       *slog.Logger
}

type RedisQueueOption func(*RedisQueue)

// WithKey sets the sorted set key. Default "notifykit:retries".
func WithKey(key string) RedisQueueOption {
	return func(q *RedisQueue) {
		if key != "" {
			q.key = key
		}
	}
}

// WithPollInterval sets how often due entries are fetched. Default 500ms.
func WithPollInterval(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.pollInterval = d
		}
	}
}

// WithBatchSize caps entries fetched per poll. Default 100.
func WithBatchSize(n int) RedisQueueOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.batchSize = int64(n)
		}
	}
}

func WithRedisClock(now func() time.Time) RedisQueueOption {
	return func(q *RedisQueue) {
		if now != nil {
			q.now = now
		}
	}
}

func WithRedisLogger(l *slog.Logger) RedisQueueOption {
	return func(q *RedisQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

func NewRedisQueue(client redis.UniversalClient, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{
		client:       client,
		key:          "notifykit:retries",
		pollInterval: 500 * time.Millisecond,
		batchSize:    100,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) Push(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	member, err := json.Marshal(e)
	if err != nil {
		return errors.Join(ErrInvalidEntry, err)
	}
	z := redis.Z{Score: float64(e.DueAt.UnixMilli()), Member: string(member)}
	if err := q.client.ZAdd(ctx, q.key, z).Err(); err != nil {
		return errors.Join(ErrQueueStorage, err)
	}
	return nil
}

// Run polls for due entries until ctx is done. Storage errors are logged and
// retried on the next tick.
func (q *RedisQueue) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := q.Poll(ctx, h); err != nil && ctx.Err() == nil {
			q.logger.LogAttrs(ctx, slog.LevelError, "delay queue poll failed",
				logger.Component("delayqueue"), logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs every entry due now and returns how many it ran. An entry runs
// only if this call removed it from the set.
func (q *RedisQueue) Poll(ctx context.Context, h Handler) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: q.batchSize,
	}).Result()
	if err != nil {
		return 0, errors.Join(ErrQueueStorage, err)
	}

	ran := 0
	for _, member := range members {
		if ctx.Err() != nil {
			return ran, nil
		}

		removed, err := q.client.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return ran, errors.Join(ErrQueueStorage, err)
		}
		if removed == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(member), &e); err != nil {
			q.logger.LogAttrs(ctx, slog.LevelError, "dropping undecodable delay queue entry",
				logger.Component("delayqueue"), logger.Error(err))
			continue
		}
		h(ctx, e)
		ran++
	}
	return ran, nil
}

// Len reports entries in the set, due or not.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, errors.Join(ErrQueueStorage, err)
	}
	return n, nil
}
