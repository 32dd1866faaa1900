package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bookathing/internal/api"
	"bookathing/internal/calendar"
	"bookathing/internal/client"
	"bookathing/internal/config"
	"bookathing/internal/models"
	"bookathing/internal/repository"
	"bookathing/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func setupApp(t *testing.T) (*app, *bytes.Buffer, *atomic.Int32) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	svc := service.NewBookingService(repository.NewMemoryStore(), config.NewRegistry(nil), nil, service.Options{}, &logger)
	handler := api.NewHTTPServer(svc, api.Options{}, &logger).Handler()

	posts := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	return &app{
		api:    client.NewClient(srv.URL + "/api"),
		out:    out,
		now:    func() time.Time { return testNow },
		logger: &logger,
	}, out, posts
}

func TestRenderDay(t *testing.T) {
	bookings := []models.Booking{
		{ID: "2", Name: "Bob", StartTime: "10:00", EndTime: "10:30", Date: "2024-06-01"},
		{ID: "1", Name: "Alice", StartTime: "09:00", EndTime: "09:30", Date: "2024-06-01"},
		{ID: "3", Name: "Night", StartTime: "22:00", EndTime: "23:00", Date: "2024-06-01"},
	}
	var buf bytes.Buffer
	renderDay(&buf, "Bookings for 2024-06-01", bookings, calendar.DefaultGrid, testNow)
	out := buf.String()

	assert.Contains(t, out, "07:00 |\n")
	assert.Contains(t, out, "09:00 | ## Alice 09:00-09:30\n")
	assert.Contains(t, out, "09:15 | ##\n")
	assert.Contains(t, out, "09:30 |\n")
	assert.Contains(t, out, "10:00 | ## Bob 10:00-10:30\n")
	assert.Contains(t, out, "(outside view)")

	// Listing is ordered by start time.
	assert.Less(t, strings.Index(out, "09:00-09:30  Alice"), strings.Index(out, "10:00-10:30  Bob"))
}

func TestRenderDay_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderDay(&buf, "Bookings for 2024-06-01", nil, calendar.DefaultGrid, testNow)
	assert.Contains(t, buf.String(), "No bookings.")
	assert.Equal(t, 44+4, strings.Count(buf.String(), "\n"))
}

func TestBook_ConflictIsRejectedLocally(t *testing.T) {
	a, out, posts := setupApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "book", []string{"-date", "2024-06-01", "-start", "09:00", "-end", "10:00", "-name", "Alice"}, nil))
	assert.Contains(t, out.String(), "Booked 2024-06-01 09:00-10:00 for Alice")

	err := a.run(ctx, "book", []string{"-date", "2024-06-01", "-start", "09:30", "-end", "09:45", "-name", "Bob"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Time slot from 09:30 to 09:45 is already booked")
	assert.Contains(t, err.Error(), "booked by Alice")
	assert.Equal(t, int32(1), posts.Load())
}

func TestDayAndCancel(t *testing.T) {
	a, out, _ := setupApp(t)
	ctx := context.Background()

	b, err := a.api.CreateBooking(ctx, client.CreateBookingRequest{Name: "Alice", StartTime: "09:00", EndTime: "10:00", Date: "2024-06-01"})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, "day", nil, nil))
	assert.Contains(t, out.String(), "09:00 | ## Alice 09:00-10:00")

	require.NoError(t, a.run(ctx, "cancel", []string{b.ID}, nil))
	assert.Contains(t, out.String(), "Cancelled "+b.ID)

	err = a.run(ctx, "cancel", []string{"-id", b.ID}, nil)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestBrowse(t *testing.T) {
	a, out, _ := setupApp(t)
	ctx := context.Background()

	_, err := a.api.CreateBooking(ctx, client.CreateBookingRequest{Name: "Alice", StartTime: "09:00", EndTime: "10:00", Date: "2024-06-02"})
	require.NoError(t, err)

	in := strings.NewReader("n\np\nbogus\nq\n")
	require.NoError(t, a.run(ctx, "browse", []string{"-date", "2024-06-01"}, in))

	s := out.String()
	assert.Contains(t, s, "Bookings for 2024-06-01\n")
	assert.Contains(t, s, "Bookings for 2024-06-02\n")
	assert.Contains(t, s, "Bookings for 2024-06-01 [cached]")
	assert.Contains(t, s, "Bookings for 2024-06-01 [updated]")
	assert.Contains(t, s, "commands: n, p, t, r, d <id>, q")
}

func TestUnknownCommand(t *testing.T) {
	a, _, _ := setupApp(t)
	assert.Error(t, a.run(context.Background(), "frobnicate", nil, nil))
}
