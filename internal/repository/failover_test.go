package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bookathing/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) List(ctx context.Context, f Filter) ([]models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, calendarID, id string) error {
	args := m.Called(ctx, calendarID, id)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) Name() string { return "mock" }

func TestFailoverStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()
	down := unavailable("mock", "list", errors.New("connection refused"))

	t.Run("PrimarySuccess", func(t *testing.T) {
		bookings := []models.Booking{{ID: "1"}}
		primary.On("List", ctx, Filter{Date: "2024-06-01"}).Return(bookings, nil).Once()

		got, err := store.List(ctx, Filter{Date: "2024-06-01"})
		assert.NoError(t, err)
		assert.Equal(t, bookings, got)
		assert.False(t, store.Degraded())
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundDoesNotFailOver", func(t *testing.T) {
		primary.On("Delete", ctx, "", "missing").Return(ErrNotFound).Once()

		err := store.Delete(ctx, "", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, store.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "Delete", ctx, "", "missing")
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		bookings := []models.Booking{{ID: "2"}}
		primary.On("List", ctx, Filter{Date: "2024-06-02"}).Return(nil, down).Once()
		fallback.On("List", ctx, Filter{Date: "2024-06-02"}).Return(bookings, nil).Once()

		got, err := store.List(ctx, Filter{Date: "2024-06-02"})
		assert.NoError(t, err)
		assert.Equal(t, bookings, got)
		assert.True(t, store.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DegradedSkipsPrimary", func(t *testing.T) {
		b := &models.Booking{ID: "3"}
		fallback.On("Create", ctx, b).Return(nil).Once()

		assert.NoError(t, store.Create(ctx, b))
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "Create", ctx, b)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		store.isDown.Store(true)
		store.lastCheck = time.Now().Add(-2 * time.Minute)

		bookings := []models.Booking{{ID: "4"}}
		primary.On("List", ctx, Filter{Date: "2024-06-03"}).Return(bookings, nil).Once()

		got, err := store.List(ctx, Filter{Date: "2024-06-03"})
		assert.NoError(t, err)
		assert.Equal(t, bookings, got)
		assert.False(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})
}

func TestFailoverStore_FallbackErrorsSurface(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	b := &models.Booking{ID: "1"}
	primary.On("Create", ctx, b).Return(unavailable("mock", "create", errors.New("timeout"))).Once()
	fallback.On("Create", ctx, b).Return(unavailable("memory", "create", errors.New("full"))).Once()

	err := store.Create(ctx, b)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.True(t, store.Degraded())
}

func TestFailoverStore_WithMemoryFallback(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	primary := new(mockStore)
	primary.On("Create", ctx, mock.Anything).Return(unavailable("mock", "create", errors.New("down"))).Once()
	store := NewFailoverStore(primary, NewMemoryStore(), &logger, WithRecoveryInterval(time.Hour))

	b := newBooking("1", "", "2024-06-01", "09:00", "10:00", time.Now())
	assert.NoError(t, store.Create(ctx, b))

	got, err := store.List(ctx, Filter{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(got))
	primary.AssertExpectations(t)
}

func TestFailoverStore_Ping(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()
	down := unavailable("mock", "ping", errors.New("connection refused"))

	t.Run("PrimaryUp", func(t *testing.T) {
		primary.On("Ping", ctx).Return(nil).Once()
		assert.NoError(t, store.Ping(ctx))
		fallback.AssertNotCalled(t, "Ping", ctx)
	})

	t.Run("ReadyOnFallback", func(t *testing.T) {
		primary.On("Ping", ctx).Return(down).Once()
		fallback.On("Ping", ctx).Return(nil).Once()
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("BothDown", func(t *testing.T) {
		primary.On("Ping", ctx).Return(down).Once()
		fallback.On("Ping", ctx).Return(errors.New("fallback gone")).Once()
		err := store.Ping(ctx)
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	})

	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}
