package domain

import (
	"time"
)

const DateLayout = "2006-01-02"

// Period is an inclusive range of calendar dates. A zero bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

func AllTime() Period {
	return Period{}
}

func Today(now time.Time) Period {
	day := truncateDay(now)
	return Period{From: day, To: day}
}

// ThisWeek returns the ISO week containing now, Monday through Sunday.
func ThisWeek(now time.Time) Period {
	day := truncateDay(now)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Period{From: start, To: start.AddDate(0, 0, 6)}
}

func NewPeriod(from, to string) (Period, error) {
	var period Period
	if from != "" {
		parsed, err := ParseDate(from)
		if err != nil {
			return Period{}, NewValidationError("from", "must be a YYYY-MM-DD date")
		}
		period.From = parsed
	}
	if to != "" {
		parsed, err := ParseDate(to)
		if err != nil {
			return Period{}, NewValidationError("to", "must be a YYYY-MM-DD date")
		}
		period.To = parsed
	}
	if !period.From.IsZero() && !period.To.IsZero() && period.To.Before(period.From) {
		return Period{}, NewValidationError("to", "must not be before from")
	}
	return period, nil
}

func (p Period) Contains(date string) bool {
	day, err := ParseDate(date)
	if err != nil {
		return false
	}
	if !p.From.IsZero() && day.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && day.After(p.To) {
		return false
	}
	return true
}

func (p Period) Days() []time.Time {
	if p.From.IsZero() || p.To.IsZero() {
		return nil
	}
	days := make([]time.Time, 0, 7)
	for day := p.From; !day.After(p.To); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
