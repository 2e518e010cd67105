package shared

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var manila = time.FixedZone("PHT", 8*60*60)

// ParseDate reads a calendar day. RFC3339 timestamps are reduced to the day
// they fall on in Philippine time, so every date compares at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		y, m, d := parsed.In(manila).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateLayout, value)
}
