package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookathing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher returns the result set for a date at call time. A gate
// blocks the next call for its date until the test releases it.
type gatedFetcher struct {
	mu      sync.Mutex
	results map[string][]models.Booking
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   map[string]int
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		results: map[string][]models.Booking{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		calls:   map[string]int{},
	}
}

func (f *gatedFetcher) set(date string, bookings ...models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bookings == nil {
		bookings = []models.Booking{}
	}
	f.results[date] = bookings
	delete(f.errs, date)
}

func (f *gatedFetcher) fail(date string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[date] = err
}

func (f *gatedFetcher) gate(date string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[date] = ch
	return ch
}

func (f *gatedFetcher) ListBookings(_ context.Context, _, date string) ([]models.Booking, error) {
	f.mu.Lock()
	f.calls[date]++
	gate := f.gates[date]
	delete(f.gates, date)
	list, err := f.results[date], f.errs[date]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *gatedFetcher) callCount(date string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[date]
}

type updates struct {
	mu   sync.Mutex
	keys  []DayKey
	lists [][]models.Booking
	errs  []error
}

func (u *updates) onUpdate(k DayKey, list []models.Booking) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, k)
	u.lists = append(u.lists, list)
}

func (u *updates) onError(_ DayKey, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errs = append(u.errs, err)
}

func day(date string) DayKey { return DayKey{Date: date} }

func TestDayCache_UncachedFetchesSynchronously(t *testing.T) {
	f := newGatedFetcher()
	f.set("2024-06-01", models.Booking{ID: "1"})
	c := NewDayCache(f, 8)

	list, cached, err := c.Navigate(context.Background(), day("2024-06-01"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "1", list[0].ID)

	got, ok := c.Peek(day("2024-06-01"))
	assert.True(t, ok)
	assert.Len(t, got, 1)
}

func TestDayCache_StaleWhileRevalidate(t *testing.T) {
	f := newGatedFetcher()
	u := &updates{}
	f.set("2024-06-01", models.Booking{ID: "1"})
	c := NewDayCache(f, 8, OnUpdate(u.onUpdate))
	ctx := context.Background()

	_, _, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)

	f.set("2024-06-01", models.Booking{ID: "1"}, models.Booking{ID: "2"})
	list, cached, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, list, 1, "cached list is served first")

	c.Wait()
	got, _ := c.Peek(day("2024-06-01"))
	assert.Len(t, got, 2)
	assert.Equal(t, []DayKey{day("2024-06-01")}, u.keys)
}

func TestDayCache_SupersededRefreshIsDiscarded(t *testing.T) {
	f := newGatedFetcher()
	u := &updates{}
	f.set("2024-06-01", models.Booking{ID: "old"})
	f.set("2024-06-02")
	c := NewDayCache(f, 8, OnUpdate(u.onUpdate))
	ctx := context.Background()

	_, _, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)

	gate := f.gate("2024-06-01")
	f.set("2024-06-01", models.Booking{ID: "new"})
	_, cached, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	require.True(t, cached)

	// Move on before the refresh returns.
	_, _, err = c.Navigate(ctx, day("2024-06-02"))
	require.NoError(t, err)
	close(gate)
	c.Wait()

	got, _ := c.Peek(day("2024-06-01"))
	assert.Equal(t, "old", got[0].ID)
	assert.Empty(t, u.keys)
	assert.Equal(t, day("2024-06-02"), c.Current())
}

func TestDayCache_SupersededUncachedFetch(t *testing.T) {
	f := newGatedFetcher()
	f.set("2024-06-01")
	f.set("2024-06-02")
	c := NewDayCache(f, 8)
	ctx := context.Background()

	gate := f.gate("2024-06-01")
	done := make(chan error, 1)
	go func() {
		_, _, err := c.Navigate(ctx, day("2024-06-01"))
		done <- err
	}()

	// Wait until the first fetch is in flight.
	require.Eventually(t, func() bool { return f.callCount("2024-06-01") == 1 }, timeout, tick)

	_, _, err := c.Navigate(ctx, day("2024-06-02"))
	require.NoError(t, err)
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	_, ok := c.Peek(day("2024-06-01"))
	assert.False(t, ok)
}

func TestDayCache_RefreshErrorKeepsCachedList(t *testing.T) {
	f := newGatedFetcher()
	u := &updates{}
	f.set("2024-06-01", models.Booking{ID: "1"})
	c := NewDayCache(f, 8, OnUpdate(u.onUpdate), OnError(u.onError))
	ctx := context.Background()

	_, _, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)

	f.fail("2024-06-01", errors.New("connection refused"))
	list, cached, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, list, 1)

	c.Wait()
	got, ok := c.Peek(day("2024-06-01"))
	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Len(t, u.errs, 1)
}

func TestDayCache_RefreshStartedBeforeInvalidateIsDiscarded(t *testing.T) {
	f := newGatedFetcher()
	u := &updates{}
	alice := models.Booking{ID: "1-a", Name: "Alice", StartTime: "09:00", EndTime: "10:00", Date: "2024-06-01"}
	f.set("2024-06-01", alice)
	c := NewDayCache(f, 8, OnUpdate(u.onUpdate))
	ctx := context.Background()

	_, _, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)

	// Background refresh reads Alice, then stalls.
	gate := f.gate("2024-06-01")
	_, cached, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	require.True(t, cached)
	require.Eventually(t, func() bool { return f.callCount("2024-06-01") == 2 }, timeout, tick)

	// Alice is cancelled and the day reloaded.
	f.set("2024-06-01")
	c.Invalidate(day("2024-06-01"))
	list, cached, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Empty(t, list)

	close(gate)
	c.Wait()

	got, ok := c.Peek(day("2024-06-01"))
	require.True(t, ok)
	assert.Empty(t, got)
	assert.Empty(t, u.keys)
}

func TestDayCache_OlderRefreshOfSameDayIsDiscarded(t *testing.T) {
	f := newGatedFetcher()
	u := &updates{}
	f.set("2024-06-01", models.Booking{ID: "1"})
	f.set("2024-06-02")
	c := NewDayCache(f, 8, OnUpdate(u.onUpdate))
	ctx := context.Background()

	_, _, err := c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	_, _, err = c.Navigate(ctx, day("2024-06-02"))
	require.NoError(t, err)

	// A -> B -> A: the first refresh of A returns last.
	gate := f.gate("2024-06-01")
	_, _, err = c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.callCount("2024-06-01") == 2 }, timeout, tick)

	_, _, err = c.Navigate(ctx, day("2024-06-02"))
	require.NoError(t, err)
	f.set("2024-06-01", models.Booking{ID: "1"}, models.Booking{ID: "2"})
	_, _, err = c.Navigate(ctx, day("2024-06-01"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, _ := c.Peek(day("2024-06-01"))
		return len(got) == 2
	}, timeout, tick)

	close(gate)
	c.Wait()

	got, _ := c.Peek(day("2024-06-01"))
	assert.Len(t, got, 2)
	u.mu.Lock()
	defer u.mu.Unlock()
	var last []models.Booking
	for i, k := range u.keys {
		if k == day("2024-06-01") {
			last = u.lists[i]
		}
	}
	assert.Len(t, last, 2)
}

func TestDayCache_FreshAndInvalidate(t *testing.T) {
	f := newGatedFetcher()
	f.set("2024-06-01", models.Booking{ID: "1"})
	c := NewDayCache(f, 8)
	ctx := context.Background()

	_, err := c.Fresh(ctx, day("2024-06-01"))
	require.NoError(t, err)
	_, err = c.Fresh(ctx, day("2024-06-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.callCount("2024-06-01"))

	c.Invalidate(day("2024-06-01"))
	_, ok := c.Peek(day("2024-06-01"))
	assert.False(t, ok)
}

func TestDayCache_Bounded(t *testing.T) {
	f := newGatedFetcher()
	c := NewDayCache(f, 2)
	ctx := context.Background()

	for _, d := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		f.set(d)
		_, _, err := c.Navigate(ctx, day(d))
		require.NoError(t, err)
	}

	_, ok := c.Peek(day("2024-06-01"))
	assert.False(t, ok, "least recently used day is evicted")
	_, ok = c.Peek(day("2024-06-03"))
	assert.True(t, ok)
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
