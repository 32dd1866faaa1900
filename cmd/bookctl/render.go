package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"bookathing/internal/calendar"
	"bookathing/internal/models"
)

// renderDay prints the grid rows of one day followed by the booking list.
func renderDay(w io.Writer, title string, bookings []models.Booking, g calendar.Grid, now time.Time) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))

	for _, row := range g.Rows(bookings) {
		switch {
		case row.Booking == nil:
			fmt.Fprintf(w, "%s |\n", row.Time)
		case row.Starts:
			fmt.Fprintf(w, "%s | ## %s %s-%s\n", row.Time, row.Booking.Name, row.Booking.StartTime, row.Booking.EndTime)
		default:
			fmt.Fprintf(w, "%s | ##\n", row.Time)
		}
	}

	if len(bookings) == 0 {
		fmt.Fprintln(w, "\nNo bookings.")
		return
	}

	blocks := calendar.Layout(bookings, g, now)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Top < blocks[j].Top })

	fmt.Fprintln(w)
	for _, block := range blocks {
		b := block.Booking
		marker := ""
		if block.New {
			marker = " (new)"
		}
		start, end, _ := b.Interval()
		if !g.Contains(start, end) {
			marker += " (outside view)"
		}
		fmt.Fprintf(w, "%s-%s  %-20s  %s%s\n", b.StartTime, b.EndTime, b.Name, b.ID, marker)
	}
}

func dayTitle(date, calendarID string) string {
	if calendarID == "" {
		return "Bookings for " + date
	}
	return fmt.Sprintf("Bookings for %s (%s)", date, calendarID)
}
