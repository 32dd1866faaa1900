package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bookathing/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	bookings []models.Booking
	err      error
	date     string
}

func (f *fakeLister) List(_ context.Context, _, date string) ([]models.Booking, error) {
	f.date = date
	return f.bookings, f.err
}

func TestFormatDigest(t *testing.T) {
	got := FormatDigest("2024-06-02", []models.Booking{
		{Name: "Bob", StartTime: "11:00", EndTime: "12:00"},
		{Name: "Alice", StartTime: "09:00", EndTime: "10:00", CalendarID: "fastlandbox"},
	})
	assert.Equal(t, "Bookings for 2024-06-02:\n09:00-10:00 Alice (fastlandbox)\n11:00-12:00 Bob", got)
}

func TestDigest_Send(t *testing.T) {
	logger := zerolog.New(io.Discard)
	sender := &fakeSender{}
	lister := &fakeLister{bookings: []models.Booking{{Name: "Alice", StartTime: "09:00", EndTime: "10:00"}}}
	d := NewDigest(lister, newTestNotifier(sender, 100), 9, &logger)

	require.NoError(t, d.Send(context.Background(), "2024-06-02"))
	assert.Equal(t, "2024-06-02", lister.date)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Alice")
}

func TestDigest_SkipsEmptyDay(t *testing.T) {
	logger := zerolog.New(io.Discard)
	sender := &fakeSender{}
	d := NewDigest(&fakeLister{}, newTestNotifier(sender, 100), 9, &logger)

	require.NoError(t, d.Send(context.Background(), "2024-06-02"))
	assert.Empty(t, sender.sent)
}

func TestDigest_ListError(t *testing.T) {
	logger := zerolog.New(io.Discard)
	d := NewDigest(&fakeLister{err: errors.New("down")}, newTestNotifier(&fakeSender{}, 100), 9, &logger)
	assert.Error(t, d.Send(context.Background(), "2024-06-02"))
}

func TestTimeUntilNextHour(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Minute, timeUntilNextHour(now, 9))
	assert.Equal(t, 23*time.Hour+30*time.Minute, timeUntilNextHour(now, 8))
}
