package client

import (
	"context"
	"fmt"

	"bookathing/internal/calendar"
	"bookathing/internal/models"
)

// Book checks req against a fresh copy of the day and submits it only when
// no stored booking overlaps. It returns *calendar.OverlapError or
// calendar.ErrInvalidInterval without contacting the create endpoint.
// Another client can still book the same slot between the check and the
// create.
func (c *Client) Book(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	if end <= start {
		return nil, calendar.ErrInvalidInterval
	}

	existing, err := c.ListBookings(ctx, req.CalendarID, req.Date)
	if err != nil {
		return nil, err
	}
	if err := calendar.ValidateCandidate(existing, start, end); err != nil {
		return nil, err
	}
	return c.CreateBooking(ctx, req)
}
