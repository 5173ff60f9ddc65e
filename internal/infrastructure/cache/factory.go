package cache

import (
	"context"
	"fmt"

	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Locker is a BookingLocker that owns resources to release on shutdown
type Locker interface {
	appbooking.BookingLocker
	Close() error
}

// LockerFactory creates booking lockers based on configuration
type LockerFactory struct {
	redisConfig           config.RedisConfig
	lockConfig            config.LockConfig
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

// WithInMemoryFallback controls whether to fall back to the in-memory locker when Redis is
// unavailable. Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:           redisCfg,
		lockConfig:            lockCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to Redis and returns a Redis-backed locker
func (f *LockerFactory) CreateRedisLocker(ctx context.Context) (*RedisBookingLocker, error) {
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}
	return NewRedisBookingLocker(client, f.lockConfig, f.logger), nil
}

// CreateLocker returns a Redis locker when Redis is configured and reachable.
// An empty redis host selects the in-memory locker directly; an unreachable Redis falls back to
// it only when the fallback is allowed.
func (f *LockerFactory) CreateLocker(ctx context.Context) (Locker, error) {
	if f.redisConfig.Host == "" {
		f.logger.Info("redis not configured, using in-memory booking locks")
		return NewInMemoryBookingLocker(f.lockConfig), nil
	}

	locker, err := f.CreateRedisLocker(ctx)
	if err == nil {
		f.logger.Info("using Redis booking locks", zap.String("addr", f.redisConfig.Addr()))
		return locker, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for booking locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory booking locks. "+
		"Concurrent instances will not serialise writes to the same booking.",
		zap.Error(err),
	)
	return NewInMemoryBookingLocker(f.lockConfig), nil
}
