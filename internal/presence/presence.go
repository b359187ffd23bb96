package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/config"
)

const presenceKey = "realtime:presence"

// Tracker mirrors per-user live connection counts into a Redis hash so
// operational tooling can see who is online. Presence is advisory: every
// failure is logged and swallowed, a nil tracker is a no-op, and the hash
// expires so a crashed process cannot leave users online forever.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTracker connects to Redis using the provided configuration. Returns nil
// when presence is disabled.
func NewTracker(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) *Tracker {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis, presence degraded", zap.Error(err))
	} else {
		logger.Info("presence index connected to redis")
	}

	return &Tracker{client: client, ttl: ttl, logger: logger}
}

// Connected records one more live connection for the user.
func (t *Tracker) Connected(ctx context.Context, userID int) {
	if t == nil {
		return
	}
	field := strconv.Itoa(userID)
	pipe := t.client.TxPipeline()
	pipe.HIncrBy(ctx, presenceKey, field, 1)
	pipe.Expire(ctx, presenceKey, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Warn("presence update failed", zap.Error(err))
	}
}

// Disconnected records one less live connection for the user, removing the
// field once the count reaches zero.
func (t *Tracker) Disconnected(ctx context.Context, userID int) {
	if t == nil {
		return
	}
	field := strconv.Itoa(userID)
	left, err := t.client.HIncrBy(ctx, presenceKey, field, -1).Result()
	if err != nil {
		t.logger.Warn("presence update failed", zap.Error(err))
		return
	}
	if left <= 0 {
		if err := t.client.HDel(ctx, presenceKey, field).Err(); err != nil {
			t.logger.Warn("presence cleanup failed", zap.Error(err))
		}
	}
}

// Online returns the user ids with at least one live connection.
func (t *Tracker) Online(ctx context.Context) ([]int, error) {
	if t == nil {
		return nil, nil
	}
	fields, err := t.client.HGetAll(ctx, presenceKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(fields))
	for field, count := range fields {
		n, err := strconv.Atoi(count)
		if err != nil || n <= 0 {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Ping verifies Redis connectivity.
func (t *Tracker) Ping(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.client.Ping(ctx).Err()
}

// Close closes the client.
func (t *Tracker) Close() {
	if t != nil && t.client != nil {
		_ = t.client.Close()
	}
}
