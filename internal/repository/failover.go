package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bookathing/internal/metrics"
	"bookathing/internal/models"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverStore serves operations from primary and switches to fallback
// when primary reports ErrBackendUnavailable. While down, primary is retried
// at most once per recovery interval; all other traffic goes to fallback.
// Data written to fallback while degraded is not copied back.
type FailoverStore struct {
	primary  BookingStore
	fallback BookingStore
	logger   *zerolog.Logger

	isDown           atomic.Bool
	mu               sync.Mutex
	lastCheck        time.Time
	recoveryInterval time.Duration
	now              func() time.Time
}

type FailoverOption func(*FailoverStore)

func WithRecoveryInterval(d time.Duration) FailoverOption {
	return func(s *FailoverStore) {
		if d > 0 {
			s.recoveryInterval = d
		}
	}
}

func NewFailoverStore(primary, fallback BookingStore, logger *zerolog.Logger, opts ...FailoverOption) *FailoverStore {
	s := &FailoverStore{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		recoveryInterval: defaultRecoveryInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Degraded reports whether the primary is currently considered down.
func (s *FailoverStore) Degraded() bool {
	return s.isDown.Load()
}

func (s *FailoverStore) Name() string {
	return s.primary.Name() + "+" + s.fallback.Name()
}

// shouldTryPrimary is true when primary is up or a recovery probe is due.
func (s *FailoverStore) shouldTryPrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().Sub(s.lastCheck) >= s.recoveryInterval {
		s.lastCheck = s.now()
		return true
	}
	return false
}

func (s *FailoverStore) markDown(op string, err error) {
	s.mu.Lock()
	s.lastCheck = s.now()
	s.mu.Unlock()

	if !s.isDown.Swap(true) {
		s.logger.Warn().Err(err).Str("op", op).Str("primary", s.primary.Name()).
			Msg("Primary store unavailable, switching to fallback")
		metrics.SetStorageDegraded(true)
	}
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Str("primary", s.primary.Name()).Msg("Primary store recovered")
		metrics.SetStorageDegraded(false)
	}
}

// run applies op to primary when allowed, falling back on unavailability.
// Any other primary outcome, including ErrNotFound, proves the primary is
// reachable and is returned as is.
func (s *FailoverStore) run(name string, op func(BookingStore) error) error {
	if s.shouldTryPrimary() {
		err := op(s.primary)
		if err == nil || !errors.Is(err, ErrBackendUnavailable) {
			s.markUp()
			return err
		}
		s.markDown(name, err)
	}

	metrics.IncStorageFallback(name)
	return op(s.fallback)
}

func (s *FailoverStore) List(ctx context.Context, f Filter) ([]models.Booking, error) {
	var out []models.Booking
	err := s.run("list", func(st BookingStore) error {
		var err error
		out, err = st.List(ctx, f)
		return err
	})
	return out, err
}

func (s *FailoverStore) Create(ctx context.Context, b *models.Booking) error {
	return s.run("create", func(st BookingStore) error {
		return st.Create(ctx, b)
	})
}

func (s *FailoverStore) Delete(ctx context.Context, calendarID, id string) error {
	return s.run("delete", func(st BookingStore) error {
		return st.Delete(ctx, calendarID, id)
	})
}

// Ping succeeds while either store answers. Degraded reports whether the
// primary is the one missing.
func (s *FailoverStore) Ping(ctx context.Context) error {
	err := s.primary.Ping(ctx)
	if err == nil {
		s.markUp()
		return nil
	}
	if fbErr := s.fallback.Ping(ctx); fbErr != nil {
		return errors.Join(err, fbErr)
	}
	return nil
}

func (s *FailoverStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}
