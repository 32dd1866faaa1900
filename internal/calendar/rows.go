package calendar

import "bookathing/internal/models"

// Row is one grid step of the day view.
type Row struct {
	Time    models.Clock
	Booking *models.Booking
	// Starts is true on the first row covered by Booking.
	Starts bool
}

// Rows splits the window into Step-sized rows and assigns each row the
// booking covering it, if any.
func (g Grid) Rows(bookings []models.Booking) []Row {
	step := models.Clock(g.Step)
	if step <= 0 {
		step = 60
	}

	var rows []Row
	for t := g.WindowStart; t < g.WindowEnd; t += step {
		row := Row{Time: t}
		for i := range bookings {
			start, end, err := bookings[i].Interval()
			if err != nil {
				continue
			}
			if IntervalsOverlap(t, t+step, start, end) {
				row.Booking = &bookings[i]
				row.Starts = (start >= t && start < t+step) || (t == g.WindowStart && start < t)
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}
