package models

import (
	"strings"
	"time"
)

// Booking represents a reserved time interval on a calendar date.
type Booking struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  string    `json:"startTime"` // HH:MM
	EndTime    string    `json:"endTime"`   // HH:MM
	Date       string    `json:"date"`      // YYYY-MM-DD
	CalendarID string    `json:"calendarId,omitempty"`
	CreatedAt  time.Time `json:"-"`
}

// Interval returns the booking's start and end as minutes since midnight.
func (b *Booking) Interval() (start, end Clock, err error) {
	start, err = ParseClock(b.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(b.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// DurationMinutes returns end - start in minutes, or 0 if the times are malformed.
func (b *Booking) DurationMinutes() int {
	start, end, err := b.Interval()
	if err != nil {
		return 0
	}
	return int(end - start)
}

// InPartition reports whether the booking belongs to the (calendarID, date) partition.
// Empty arguments act as wildcards.
func (b *Booking) InPartition(calendarID, date string) bool {
	if calendarID != "" && b.CalendarID != calendarID {
		return false
	}
	if date != "" && b.Date != date {
		return false
	}
	return true
}

// Normalize trims surrounding whitespace from the user-supplied fields.
func (b *Booking) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.StartTime = strings.TrimSpace(b.StartTime)
	b.EndTime = strings.TrimSpace(b.EndTime)
	b.Date = strings.TrimSpace(b.Date)
	b.CalendarID = strings.TrimSpace(b.CalendarID)
}
