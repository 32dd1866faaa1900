package service

import (
	"errors"
	"strings"
)

var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrOverlap          = errors.New("booking overlaps an existing booking")
)

// ValidationError rejects a request before it reaches the store.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Missing, ", ")
}
