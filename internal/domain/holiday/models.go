package holiday

import (
	"errors"
	"time"
)

const (
	TypeRegular = "Regular"
	TypeSpecial = "Special"
)

var (
	ErrHolidayNotFound = errors.New("holiday not found")
	ErrGlobalHoliday   = errors.New("global holidays cannot be deleted")
	ErrInvalidType     = errors.New("holiday type must be Regular or Special")
)

// Holiday is a calendar entry. An empty OrgID marks a nationwide holiday shared by every organization.
type Holiday struct {
	ID    string    `json:"id"`
	OrgID string    `json:"organizationId,omitempty"`
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Type  string    `json:"type"`
}

func (h Holiday) Global() bool {
	return h.OrgID == ""
}

func ValidType(value string) bool {
	return value == TypeRegular || value == TypeSpecial
}

// InPeriod returns the holidays dated within [start, end], both inclusive.
func InPeriod(holidays []Holiday, start, end time.Time) []Holiday {
	startDay := truncateDay(start)
	endDay := truncateDay(end)
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		day := truncateDay(h.Date)
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Summary counts holidays per type.
type Summary struct {
	Regular int `json:"regular"`
	Special int `json:"special"`
}

func Summarize(holidays []Holiday) Summary {
	var s Summary
	for _, h := range holidays {
		switch h.Type {
		case TypeRegular:
			s.Regular++
		case TypeSpecial:
			s.Special++
		}
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
