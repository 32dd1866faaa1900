package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bookathing/internal/models"

	"github.com/rs/zerolog"
)

// BookingLister is satisfied by the booking service.
type BookingLister interface {
	List(ctx context.Context, calendarID, date string) ([]models.Booking, error)
}

// Digest posts the next day's bookings once a day.
type Digest struct {
	bookings BookingLister
	notifier *TelegramNotifier
	hour     int
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewDigest(bookings BookingLister, notifier *TelegramNotifier, hour int, logger *zerolog.Logger) *Digest {
	return &Digest{bookings: bookings, notifier: notifier, hour: hour, now: time.Now, logger: logger}
}

// Start waits until the configured hour, then sends a digest every 24h
// until ctx is done.
func (d *Digest) Start(ctx context.Context) {
	timer := time.NewTimer(timeUntilNextHour(d.now(), d.hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			tomorrow := models.FormatDate(d.now().AddDate(0, 0, 1))
			if err := d.Send(ctx, tomorrow); err != nil {
				d.logger.Error().Err(err).Str("date", tomorrow).Msg("digest: send failed")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

// Send posts the bookings of date. Days without bookings are skipped.
func (d *Digest) Send(ctx context.Context, date string) error {
	bookings, err := d.bookings.List(ctx, "", date)
	if err != nil {
		return fmt.Errorf("digest: list bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil
	}

	text := FormatDigest(date, bookings)
	var firstErr error
	for _, chatID := range d.notifier.chatIDs {
		if err := d.notifier.send(ctx, chatID, text); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("digest: chat %d: %w", chatID, err)
		}
	}
	return firstErr
}

// FormatDigest lists bookings ordered by start time.
func FormatDigest(date string, bookings []models.Booking) string {
	sorted := append([]models.Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _, _ := sorted[i].Interval()
		b, _, _ := sorted[j].Interval()
		return a < b
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Bookings for %s:", date)
	for _, b := range sorted {
		fmt.Fprintf(&sb, "\n%s-%s %s", b.StartTime, b.EndTime, b.Name)
		if b.CalendarID != "" {
			fmt.Fprintf(&sb, " (%s)", b.CalendarID)
		}
	}
	return sb.String()
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
