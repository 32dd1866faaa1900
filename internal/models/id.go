package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idRandomLength = 9

// NewID returns a booking id of the form "<unix-millis>-<random>".
// The leading component is the creation time; clients rely on it to
// highlight freshly created bookings.
func NewID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + random[:idRandomLength]
}

// IDTime extracts the creation timestamp encoded in a booking id.
func IDTime(id string) (time.Time, bool) {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
