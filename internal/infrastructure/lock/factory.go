package lock

import (
	"fmt"
	"time"

	"github.com/restocost/backend/internal/application/costing"
	"github.com/restocost/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LockerFactory creates establishment lockers based on configuration
type LockerFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory locker
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(cfg config.RedisConfig, ttl time.Duration, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLocker creates a Redis-backed establishment locker
func (f *LockerFactory) CreateRedisLocker() (costing.EstablishmentLocker, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	locker, err := NewRedisLocker(redisCfg, f.ttl, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis establishment locker: %w", err)
	}

	return locker, nil
}

// CreateLocker creates a locker based on whether Redis is available.
// It tries Redis first and falls back to an in-memory locker when allowed.
// The in-memory locker cannot serialize events across process instances.
func (f *LockerFactory) CreateLocker() (costing.EstablishmentLocker, error) {
	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis establishment locker")
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for establishment locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory establishment locker. "+
		"Concurrent events for one establishment may interleave across instances.",
		zap.Error(err),
	)
	return NewMemoryLocker(), nil
}
