// Package calendar holds the day-view logic of the booking calendar:
// overlap validation of a proposed interval and the placement of booking
// blocks on the day grid. Everything here is pure; callers supply the
// bookings they consider current.
package calendar

import (
	"errors"
	"fmt"

	"bookathing/internal/models"
)

// ErrInvalidInterval is returned for zero-length or inverted intervals.
var ErrInvalidInterval = errors.New("end time must be after start time")

// OverlapError reports that a proposed interval collides with a booking.
type OverlapError struct {
	Start, End models.Clock
	Conflict   models.Booking
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("Time slot from %s to %s is already booked. Please select a different time.", e.Start, e.End)
}

// IntervalsOverlap reports whether [s1,e1) and [s2,e2) intersect.
// Intervals sharing only an endpoint do not overlap.
func IntervalsOverlap(s1, e1, s2, e2 models.Clock) bool {
	return !(e1 <= s2 || s1 >= e2)
}

// Overlaps reports whether [start,end) overlaps any booking in existing.
// Bookings with malformed times are ignored.
func Overlaps(existing []models.Booking, start, end models.Clock) bool {
	return firstConflict(existing, start, end) >= 0
}

// ValidateCandidate checks a proposed interval before it is submitted.
// It rejects inverted or empty intervals and returns an *OverlapError
// naming the first conflicting booking.
func ValidateCandidate(existing []models.Booking, start, end models.Clock) error {
	if end <= start {
		return ErrInvalidInterval
	}
	if idx := firstConflict(existing, start, end); idx >= 0 {
		return &OverlapError{Start: start, End: end, Conflict: existing[idx]}
	}
	return nil
}

func firstConflict(existing []models.Booking, start, end models.Clock) int {
	for i := range existing {
		bStart, bEnd, err := existing[i].Interval()
		if err != nil {
			continue
		}
		if IntervalsOverlap(start, end, bStart, bEnd) {
			return i
		}
	}
	return -1
}
