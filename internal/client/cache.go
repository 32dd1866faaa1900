package client

import (
	"context"
	"errors"
	"sync"

	"bookathing/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 64

// ErrSuperseded is returned by Navigate when the user moved to another day
// before the uncached fetch completed.
var ErrSuperseded = errors.New("navigation superseded")

// DayKey identifies one day of one calendar.
type DayKey struct {
	CalendarID string
	Date       string
}

// Fetcher loads the bookings of a day.
type Fetcher interface {
	ListBookings(ctx context.Context, calendarID, date string) ([]models.Booking, error)
}

// DayCache is a stale-while-revalidate view of recently visited days.
// Only results for the current day reach the cache and the callbacks.
type DayCache struct {
	fetch Fetcher
	cache *lru.Cache[DayKey, []models.Booking]

	mu       sync.Mutex
	current  DayKey
	seq      uint64
	gens     *lru.Cache[DayKey, uint64]
	onUpdate func(DayKey, []models.Booking)
	onError  func(DayKey, error)

	wg sync.WaitGroup
}

type CacheOption func(*DayCache)

// OnUpdate is called from the refresh goroutine with fresh bookings for
// the current day.
func OnUpdate(fn func(DayKey, []models.Booking)) CacheOption {
	return func(c *DayCache) { c.onUpdate = fn }
}

// OnError is called when a background refresh of the current day fails.
// The cached list stays in place.
func OnError(fn func(DayKey, error)) CacheOption {
	return func(c *DayCache) { c.onError = fn }
}

func NewDayCache(fetch Fetcher, size int, opts ...CacheOption) *DayCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[DayKey, []models.Booking](size)
	// An evicted generation only makes in-flight results for that day stale.
	gens, _ := lru.New[DayKey, uint64](4 * size)
	c := &DayCache{fetch: fetch, cache: cache, gens: gens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Navigate makes key the current day. A cached list is returned at once
// with cached=true and refreshed in the background; otherwise the day is
// fetched before returning.
func (c *DayCache) Navigate(ctx context.Context, key DayKey) (bookings []models.Booking, cached bool, err error) {
	c.mu.Lock()
	c.current = key
	gen := c.bump(key)
	c.mu.Unlock()

	if list, ok := c.cache.Get(key); ok {
		c.wg.Add(1)
		go c.refresh(ctx, key, gen)
		return list, true, nil
	}

	list, err := c.fetch.ListBookings(ctx, key.CalendarID, key.Date)
	if err != nil {
		return nil, false, err
	}
	if !c.store(key, gen, list) {
		return nil, false, ErrSuperseded
	}
	return list, false, nil
}

// bump starts a new generation for key. Results of older fetches for the
// same key are dropped. Callers hold c.mu.
func (c *DayCache) bump(key DayKey) uint64 {
	c.seq++
	c.gens.Add(key, c.seq)
	return c.seq
}

func (c *DayCache) latest(key DayKey, gen uint64) bool {
	g, ok := c.gens.Peek(key)
	return ok && g == gen
}

func (c *DayCache) refresh(ctx context.Context, key DayKey, gen uint64) {
	defer c.wg.Done()

	list, err := c.fetch.ListBookings(ctx, key.CalendarID, key.Date)
	if err != nil {
		c.mu.Lock()
		cb, isCurrent := c.onError, c.current == key && c.latest(key, gen)
		c.mu.Unlock()
		if isCurrent && cb != nil {
			cb(key, err)
		}
		return
	}

	if c.store(key, gen, list) {
		c.mu.Lock()
		cb := c.onUpdate
		c.mu.Unlock()
		if cb != nil {
			cb(key, list)
		}
	}
}

// store caches list if key is still current and no newer fetch, Fresh or
// Invalidate happened for it since gen. It reports whether it did.
func (c *DayCache) store(key DayKey, gen uint64, list []models.Booking) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != key || !c.latest(key, gen) {
		return false
	}
	c.cache.Add(key, list)
	return true
}

// Fresh fetches key bypassing the cache and caches the result unless a
// newer fetch for key started meanwhile.
func (c *DayCache) Fresh(ctx context.Context, key DayKey) ([]models.Booking, error) {
	c.mu.Lock()
	gen := c.bump(key)
	c.mu.Unlock()

	list, err := c.fetch.ListBookings(ctx, key.CalendarID, key.Date)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.latest(key, gen) {
		c.cache.Add(key, list)
	}
	c.mu.Unlock()
	return list, nil
}

// Invalidate drops key after a local create or delete. Refreshes already
// in flight for key are discarded.
func (c *DayCache) Invalidate(key DayKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bump(key)
	c.cache.Remove(key)
}

// Peek returns the cached list for key without changing recency.
func (c *DayCache) Peek(key DayKey) ([]models.Booking, bool) {
	return c.cache.Peek(key)
}

func (c *DayCache) Current() DayKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Wait blocks until in-flight refreshes finish.
func (c *DayCache) Wait() {
	c.wg.Wait()
}
