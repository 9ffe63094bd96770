package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/restocost/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "lock:establishment:"

// releaseScript deletes the lock only if it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker serializes cost events per establishment using a Redis
// SET NX lock. Contention surfaces as a concurrency error so callers can
// retry on a later poll.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisLocker creates a locker with its own Redis client and verifies the
// connection before returning.
func NewRedisLocker(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, ttl, logger), nil
}

// NewRedisLockerWithClient creates a locker sharing an existing Redis client.
func NewRedisLockerWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Acquire takes the per-establishment lock. The returned release function is
// safe to call even after the TTL expired: a lock grabbed by someone else in
// the meantime is left alone.
func (l *RedisLocker) Acquire(ctx context.Context, establishmentID uuid.UUID) (func(), error) {
	key := l.keyPrefix + establishmentID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire establishment lock: %w", err)
	}
	if !ok {
		return nil, shared.NewConcurrencyError("Another event is being processed for this establishment")
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release establishment lock",
				zap.String("establishment_id", establishmentID.String()),
				zap.Error(err),
			)
		}
	}
	return release, nil
}

// Close closes the underlying Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
