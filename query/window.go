package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500

	dateLayout   = "2006-01-02"
	upcomingSpan = 14 * 24 * time.Hour
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidLimit = errors.New("invalid limit")
)

// Selector is the caller's choice of window. DateFrom and DateTo only apply
// when both are set; otherwise Upcoming, otherwise the current league week.
type Selector struct {
	DateFrom string
	DateTo   string
	Upcoming bool
	Limit    int
}

func (s Selector) explicit() bool {
	return strings.TrimSpace(s.DateFrom) != "" && strings.TrimSpace(s.DateTo) != ""
}

// Window resolves sel to inclusive UTC bounds relative to now.
func Window(sel Selector, now time.Time) (from, to time.Time, err error) {
	now = now.UTC()

	switch {
	case sel.explicit():
		start, err := time.Parse(dateLayout, strings.TrimSpace(sel.DateFrom))
		if err != nil {
			return from, to, fmt.Errorf("%w: date_from %q", ErrInvalidDate, sel.DateFrom)
		}
		end, err := time.Parse(dateLayout, strings.TrimSpace(sel.DateTo))
		if err != nil {
			return from, to, fmt.Errorf("%w: date_to %q", ErrInvalidDate, sel.DateTo)
		}
		return start, end.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil

	case sel.Upcoming:
		return now, now.Add(upcomingSpan), nil

	default:
		return LeagueWeek(now)
	}
}

// LeagueWeek returns the Tuesday-to-Monday week containing now. The start is
// the most recent Tuesday at or before today, the end the last microsecond
// of the following Monday.
func LeagueWeek(now time.Time) (from, to time.Time, err error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(today.Weekday()) - int(time.Tuesday) + 7) % 7
	from = today.AddDate(0, 0, -back)
	to = from.AddDate(0, 0, 7).Add(-time.Microsecond)
	return from, to, nil
}

// ParseLimit reads a limit query value. Empty means DefaultLimit, values
// above MaxLimit are clamped, anything below 1 is rejected.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}
	return ClampLimit(n), nil
}

// ClampLimit bounds n to [1, MaxLimit], using DefaultLimit for n < 1.
func ClampLimit(n int) int {
	switch {
	case n < 1:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// ParseBool accepts the truthy spellings browsers and scripts send.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
