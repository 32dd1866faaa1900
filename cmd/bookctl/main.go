// Command bookctl is a terminal client for the booking API.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"bookathing/internal/calendar"
	"bookathing/internal/client"
	"bookathing/internal/models"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const usage = `usage: bookctl [-api URL] [-calendar ID] <command> [flags]

commands:
  day       show the bookings of a day
  book      book a time slot
  cancel    delete a booking by id
  browse    page through days interactively
  calendars list calendars
  health    show server health
`

type app struct {
	api      *client.Client
	calendar string
	out      io.Writer
	now      func() time.Time
	logger   *zerolog.Logger
}

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	fs := flag.NewFlagSet("bookctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	apiURL := fs.String("api", envOr("BOOKATHING_API", "http://localhost:8080/api"), "API base URL")
	calendarID := fs.String("calendar", os.Getenv("BOOKATHING_CALENDAR"), "calendar id")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		api:      client.NewClient(*apiURL, client.WithTimeout(*timeout)),
		calendar: *calendarID,
		out:      os.Stdout,
		now:      time.Now,
		logger:   &logger,
	}

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:], os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string, in io.Reader) error {
	switch cmd {
	case "day":
		return a.day(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "browse":
		return a.browse(ctx, args, in)
	case "calendars":
		return a.calendars(ctx)
	case "health":
		return a.health(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) today() string {
	return models.FormatDate(a.now())
}

func (a *app) grid(full bool) calendar.Grid {
	if full {
		return calendar.FullDayGrid()
	}
	return calendar.DefaultGrid
}

func (a *app) day(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("day", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	date := fs.String("date", a.today(), "date YYYY-MM-DD")
	full := fs.Bool("full", false, "show 00:00-24:00 instead of 07:00-18:00")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bookings, err := a.api.ListBookings(ctx, a.calendar, *date)
	if err != nil {
		return err
	}
	renderDay(a.out, dayTitle(*date, a.calendar), bookings, a.grid(*full), a.now())
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	date := fs.String("date", a.today(), "date YYYY-MM-DD")
	start := fs.String("start", "", "start time HH:MM")
	end := fs.String("end", "", "end time HH:MM")
	name := fs.String("name", "", "name on the booking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := a.api.Book(ctx, client.CreateBookingRequest{
		Name:       strings.TrimSpace(*name),
		StartTime:  *start,
		EndTime:    *end,
		Date:       *date,
		CalendarID: a.calendar,
	})
	var overlap *calendar.OverlapError
	if errors.As(err, &overlap) {
		return fmt.Errorf("%s (booked by %s)", overlap.Error(), overlap.Conflict.Name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Booked %s %s-%s for %s (id %s)\n", b.Date, b.StartTime, b.EndTime, b.Name, b.ID)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		return errors.New("booking id is required")
	}

	if err := a.api.DeleteBooking(ctx, a.calendar, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cancelled %s\n", *id)
	return nil
}

func (a *app) calendars(ctx context.Context) error {
	cals, err := a.api.ListCalendars(ctx)
	if err != nil {
		return err
	}
	if len(cals) == 0 {
		fmt.Fprintln(a.out, "No calendars configured.")
		return nil
	}
	for _, c := range cals {
		fmt.Fprintf(a.out, "%-20s %s\n", c.ID, c.DisplayName)
	}
	return nil
}

func (a *app) health(ctx context.Context) error {
	h, err := a.api.HealthCheck(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "status=%s backend=%s degraded=%t bookings=%d\n", h.Status, h.Backend, h.Degraded, h.Bookings)
	return nil
}

// browse reads navigation commands from in, one per line:
// n(ext), p(rev), t(oday), r(efresh), d <id> to cancel, q(uit).
func (a *app) browse(ctx context.Context, args []string, in io.Reader) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	date := fs.String("date", a.today(), "first date YYYY-MM-DD")
	full := fs.Bool("full", false, "show 00:00-24:00 instead of 07:00-18:00")
	if err := fs.Parse(args); err != nil {
		return err
	}
	current, err := models.ParseDate(*date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", *date, err)
	}
	grid := a.grid(*full)

	// Refresh callbacks print from another goroutine.
	out := &lockedWriter{w: a.out}
	show := func(key client.DayKey, bookings []models.Booking, note string) {
		title := dayTitle(key.Date, key.CalendarID)
		if note != "" {
			title += " " + note
		}
		var buf bytes.Buffer
		renderDay(&buf, title, bookings, grid, a.now())
		_, _ = out.Write(buf.Bytes())
	}

	cache := client.NewDayCache(a.api, client.DefaultCacheSize,
		client.OnUpdate(func(key client.DayKey, bookings []models.Booking) {
			show(key, bookings, "[updated]")
		}),
		client.OnError(func(key client.DayKey, err error) {
			a.logger.Warn().Err(err).Str("date", key.Date).Msg("Refresh failed, showing cached bookings")
		}),
	)
	defer cache.Wait()

	navigate := func() {
		key := client.DayKey{CalendarID: a.calendar, Date: models.FormatDate(current)}
		bookings, cached, err := cache.Navigate(ctx, key)
		if errors.Is(err, client.ErrSuperseded) {
			return
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return
		}
		note := ""
		if cached {
			note = "[cached]"
		}
		show(key, bookings, note)
	}

	navigate()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "n", "next":
			current = current.AddDate(0, 0, 1)
		case "p", "prev":
			current = current.AddDate(0, 0, -1)
		case "t", "today":
			current, _ = models.ParseDate(a.today())
		case "r", "refresh":
			cache.Invalidate(cache.Current())
		case "d", "cancel":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: d <id>")
				continue
			}
			if err := a.api.DeleteBooking(ctx, a.calendar, fields[1]); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			cache.Invalidate(cache.Current())
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "commands: n, p, t, r, d <id>, q")
			continue
		}
		navigate()
	}
	return scanner.Err()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
