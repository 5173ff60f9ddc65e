package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only while it still holds our token, so an expired lease
// taken over by another request is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBookingLocker implements BookingLocker with Redis SET NX PX leases.
// It is suitable for deployments where several instances mutate the same bookings.
type RedisBookingLocker struct {
	client *redis.Client
	cfg    config.LockConfig
	logger *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisBookingLocker creates a locker on an existing client
func NewRedisBookingLocker(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) *RedisBookingLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBookingLocker{
		client: client,
		cfg:    normalizeLockConfig(cfg),
		logger: logger,
	}
}

// Acquire takes the lease for a booking, waiting up to the configured timeout
func (l *RedisBookingLocker) Acquire(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	key := l.cfg.KeyPrefix + bookingID.String()
	token := uuid.NewString()

	err := waitForLease(ctx, l.cfg, bookingID, func(ctx context.Context) (bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to acquire booking lock: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return func() { l.release(key, token) }, nil
}

// release runs on its own context so a cancelled request still frees the lease
func (l *RedisBookingLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn("failed to release booking lock", zap.String("key", key), zap.Error(err))
		return
	}
	if deleted == 0 {
		l.logger.Warn("booking lock expired before release", zap.String("key", key), zap.Duration("ttl", l.cfg.TTL))
	}
}

// Close closes the Redis client
func (l *RedisBookingLocker) Close() error {
	return l.client.Close()
}

// Client returns the underlying Redis client (for health checks)
func (l *RedisBookingLocker) Client() *redis.Client {
	return l.client
}

var _ appbooking.BookingLocker = (*RedisBookingLocker)(nil)
