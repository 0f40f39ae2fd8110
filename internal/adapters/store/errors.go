package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a batch is not stored
	ErrNotFound = errors.New("batch not found")
)

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
