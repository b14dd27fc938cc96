package ticks

import (
	"time"

	"github.com/araddon/dateparse"
)

// parseFlexibleDate accepts either a bare ISO-8601 date ("2024-01-01") or a
// full date-time and returns the corresponding UTC instant.
func parseFlexibleDate(value string) (time.Time, error) {
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, err
	}

	return t.UTC(), nil
}
