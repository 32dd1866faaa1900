// Package service implements the booking operations exposed by the API.
package service

import (
	"context"
	"fmt"
	"time"

	"bookathing/internal/calendar"
	"bookathing/internal/events"
	"bookathing/internal/models"
	"bookathing/internal/repository"

	"github.com/rs/zerolog"
)

// CalendarRegistry reports whether a calendar id is known.
type CalendarRegistry interface {
	Exists(id string) bool
}

// EventPublisher receives booking lifecycle events.
type EventPublisher interface {
	Publish(event events.Event)
}

// CreateRequest is the client-supplied part of a booking.
type CreateRequest struct {
	Name       string `json:"name"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Date       string `json:"date"`
	CalendarID string `json:"calendarId,omitempty"`
}

type Options struct {
	// EnforceOverlap rejects creates that collide with a stored booking.
	// The check and the insert are not atomic.
	EnforceOverlap bool
	Now            func() time.Time
}

type BookingService struct {
	store     repository.BookingStore
	calendars CalendarRegistry
	bus       EventPublisher
	opts      Options
	logger    *zerolog.Logger
}

// NewBookingService wires the service. calendars and bus may be nil.
func NewBookingService(store repository.BookingStore, calendars CalendarRegistry, bus EventPublisher, opts Options, logger *zerolog.Logger) *BookingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BookingService{
		store:     store,
		calendars: calendars,
		bus:       bus,
		opts:      opts,
		logger:    logger,
	}
}

// StoreName identifies the underlying backend.
func (s *BookingService) StoreName() string {
	return s.store.Name()
}

// Degraded reports whether the store is serving from its fallback.
func (s *BookingService) Degraded() bool {
	d, ok := s.store.(interface{ Degraded() bool })
	return ok && d.Degraded()
}

// Ping checks the underlying store.
func (s *BookingService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *BookingService) checkCalendar(calendarID string) error {
	if calendarID == "" || s.calendars == nil {
		return nil
	}
	if !s.calendars.Exists(calendarID) {
		return fmt.Errorf("%w: %s", ErrCalendarNotFound, calendarID)
	}
	return nil
}

// Validate checks required fields and their formats.
func (r *CreateRequest) Validate() error {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.StartTime == "" {
		missing = append(missing, "startTime")
	}
	if r.EndTime == "" {
		missing = append(missing, "endTime")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Missing required fields", Missing: missing}
	}

	start, err := models.ParseClock(r.StartTime)
	if err != nil {
		return &ValidationError{Message: "Invalid startTime, expected HH:MM"}
	}
	end, err := models.ParseClock(r.EndTime)
	if err != nil {
		return &ValidationError{Message: "Invalid endTime, expected HH:MM"}
	}
	if end <= start {
		return &ValidationError{Message: "endTime must be after startTime"}
	}
	if _, err := models.ParseDate(r.Date); err != nil {
		return &ValidationError{Message: "Invalid date, expected YYYY-MM-DD"}
	}
	return nil
}

// Create validates req, assigns an id and persists the booking.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	b := &models.Booking{
		Name:       req.Name,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Date:       req.Date,
		CalendarID: req.CalendarID,
	}
	b.Normalize()

	normalized := CreateRequest{Name: b.Name, StartTime: b.StartTime, EndTime: b.EndTime, Date: b.Date}
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	// Store the canonical HH:MM form.
	start, end, err := b.Interval()
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	b.StartTime, b.EndTime = start.String(), end.String()
	if err := s.checkCalendar(b.CalendarID); err != nil {
		return nil, err
	}

	if s.opts.EnforceOverlap {
		if err := s.checkOverlap(ctx, b); err != nil {
			return nil, err
		}
	}

	now := s.opts.Now()
	b.ID = models.NewID(now)
	b.CreatedAt = now.UTC()

	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("calendar", b.CalendarID).
		Str("date", b.Date).
		Str("start", b.StartTime).
		Str("end", b.EndTime).
		Msg("Booking created")

	s.publish(events.BookingCreated, *b)
	return b, nil
}

func (s *BookingService) checkOverlap(ctx context.Context, b *models.Booking) error {
	existing, err := s.store.List(ctx, repository.Filter{CalendarID: b.CalendarID, Date: b.Date})
	if err != nil {
		return fmt.Errorf("load bookings for overlap check: %w", err)
	}
	start, end, err := b.Interval()
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if err := calendar.ValidateCandidate(existing, start, end); err != nil {
		return fmt.Errorf("%w: %w", ErrOverlap, err)
	}
	return nil
}

// List returns bookings of a calendar on a date. Empty arguments widen the
// selection.
func (s *BookingService) List(ctx context.Context, calendarID, date string) ([]models.Booking, error) {
	if date != "" {
		if _, err := models.ParseDate(date); err != nil {
			return nil, &ValidationError{Message: "Invalid date, expected YYYY-MM-DD"}
		}
	}
	if err := s.checkCalendar(calendarID); err != nil {
		return nil, err
	}

	bookings, err := s.store.List(ctx, repository.Filter{CalendarID: calendarID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Delete removes a booking by id.
func (s *BookingService) Delete(ctx context.Context, calendarID, id string) error {
	if id == "" {
		return &ValidationError{Message: "Missing booking id"}
	}
	if err := s.checkCalendar(calendarID); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, calendarID, id); err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}

	s.logger.Info().Str("booking_id", id).Str("calendar", calendarID).Msg("Booking deleted")
	s.publish(events.BookingDeleted, models.Booking{ID: id, CalendarID: calendarID})
	return nil
}

func (s *BookingService) publish(eventType string, b models.Booking) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Booking: b, CreatedAt: s.opts.Now()})
}
