package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingLocker serialises mutations of one booking across requests and processes.
// Acquire blocks until the lock is held or ctx is done and returns the release function.
type BookingLocker interface {
	Acquire(ctx context.Context, bookingID uuid.UUID) (release func(), err error)
}

// NoOpBookingLocker grants every lock immediately
type NoOpBookingLocker struct{}

// Acquire always succeeds
func (NoOpBookingLocker) Acquire(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}
