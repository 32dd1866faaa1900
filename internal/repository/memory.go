package repository

import (
	"context"
	"sync"

	"bookathing/internal/models"
)

// MemoryStore keeps bookings in process memory. Contents are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings []models.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBookings(s.bookings, f), nil
}

func (s *MemoryStore) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, calendarID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.bookings, calendarID, id)
	if idx < 0 {
		return ErrNotFound
	}
	s.bookings = append(s.bookings[:idx], s.bookings[idx+1:]...)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Name() string { return "memory" }

func filterBookings(all []models.Booking, f Filter) []models.Booking {
	out := make([]models.Booking, 0)
	for i := range all {
		if all[i].InPartition(f.CalendarID, f.Date) {
			out = append(out, all[i])
		}
	}
	return out
}

func indexOf(all []models.Booking, calendarID, id string) int {
	for i := range all {
		if all[i].ID == id && all[i].InPartition(calendarID, "") {
			return i
		}
	}
	return -1
}
