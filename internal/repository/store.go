// Package repository persists bookings. Every backend implements
// BookingStore; FailoverStore layers the fallback policy on top of any two.
package repository

import (
	"context"
	"errors"
	"fmt"

	"bookathing/internal/models"
)

var (
	ErrNotFound           = errors.New("booking not found")
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// Error wraps an infrastructure failure of a backend. It matches
// ErrBackendUnavailable under errors.Is.
type Error struct {
	Op      string
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrBackendUnavailable }

func unavailable(backend, op string, err error) error {
	return &Error{Op: op, Backend: backend, Err: err}
}

// Filter selects a partition. Empty fields match everything.
type Filter struct {
	CalendarID string
	Date       string
}

// BookingStore is the durable list of bookings.
type BookingStore interface {
	// List returns matching bookings in insertion order; never nil on success.
	List(ctx context.Context, f Filter) ([]models.Booking, error)
	// Create persists an already validated booking.
	Create(ctx context.Context, b *models.Booking) error
	// Delete removes the booking with id, restricted to calendarID when set.
	Delete(ctx context.Context, calendarID, id string) error
	Ping(ctx context.Context) error
	Close() error
	// Name identifies the backend in logs and health output.
	Name() string
}
