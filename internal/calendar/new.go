package calendar

import (
	"time"

	"bookathing/internal/models"
)

// NewWindow is how long a booking counts as freshly created.
const NewWindow = 5 * time.Second

// IsNew reports whether the booking was created within NewWindow of now,
// judging by the timestamp encoded in its id.
func IsNew(b models.Booking, now time.Time) bool {
	created, ok := models.IDTime(b.ID)
	if !ok {
		return false
	}
	age := now.Sub(created)
	return age >= 0 && age < NewWindow
}
