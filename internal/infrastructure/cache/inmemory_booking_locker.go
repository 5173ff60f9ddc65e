package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appbooking "github.com/hms/backend/internal/application/booking"
	"github.com/hms/backend/internal/infrastructure/config"
)

// lease is a held lock with its expiry
type lease struct {
	token     string
	expiresAt time.Time
}

// InMemoryBookingLocker implements BookingLocker with a process-local lease table.
// Leases expire after the TTL like their Redis counterparts.
// WARNING: locks are not shared across process instances.
type InMemoryBookingLocker struct {
	cfg       config.LockConfig
	mu        sync.Mutex
	leases    map[uuid.UUID]lease
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryBookingLocker creates a locker and starts its expired-lease sweeper
func NewInMemoryBookingLocker(cfg config.LockConfig) *InMemoryBookingLocker {
	l := &InMemoryBookingLocker{
		cfg:      normalizeLockConfig(cfg),
		leases:   make(map[uuid.UUID]lease),
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.sweepLoop()
	return l
}

// Acquire takes the lease for a booking, waiting up to the configured timeout
func (l *InMemoryBookingLocker) Acquire(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	token := uuid.NewString()
	err := waitForLease(ctx, l.cfg, bookingID, func(context.Context) (bool, error) {
		return l.tryLock(bookingID, token), nil
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(bookingID, token) })
	}, nil
}

func (l *InMemoryBookingLocker) tryLock(bookingID uuid.UUID, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if held, ok := l.leases[bookingID]; ok && now.Before(held.expiresAt) {
		return false
	}
	l.leases[bookingID] = lease{token: token, expiresAt: now.Add(l.cfg.TTL)}
	return true
}

func (l *InMemoryBookingLocker) unlock(bookingID uuid.UUID, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.leases[bookingID]; ok && held.token == token {
		delete(l.leases, bookingID)
	}
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemoryBookingLocker) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryBookingLocker) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops leases whose holder never released them
func (l *InMemoryBookingLocker) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, held := range l.leases {
		if now.After(held.expiresAt) {
			delete(l.leases, id)
		}
	}
}

// Size returns the number of held leases (for testing/monitoring)
func (l *InMemoryBookingLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.leases)
}

var _ appbooking.BookingLocker = (*InMemoryBookingLocker)(nil)
