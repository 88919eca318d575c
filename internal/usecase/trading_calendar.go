package usecase

import (
	"fmt"
	"strings"
	"time"
)

const holidayLayout = "2006-01-02"

// SessionCalendar opens trading between Open (inclusive) and Close
// (exclusive), measured from local midnight in Location, on the configured
// weekdays, except on holiday dates.
type SessionCalendar struct {
	Location *time.Location
	Open     time.Duration
	Close    time.Duration
	Weekdays map[time.Weekday]bool // nil means every day
	Holidays map[string]bool       // keyed by YYYY-MM-DD in Location
}

// NewSessionCalendar builds a calendar from config strings. Unknown
// timezones fall back to UTC.
func NewSessionCalendar(tz, open, close string, weekdays, holidays []string) (*SessionCalendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	openAt, err := ParseClock(open)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	closeAt, err := ParseClock(close)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	if closeAt <= openAt {
		return nil, fmt.Errorf("close %s must be after open %s", close, open)
	}

	cal := &SessionCalendar{
		Location: loc,
		Open:     openAt,
		Close:    closeAt,
		Holidays: make(map[string]bool, len(holidays)),
	}

	if len(weekdays) > 0 {
		cal.Weekdays = make(map[time.Weekday]bool, len(weekdays))
		for _, w := range weekdays {
			day, err := ParseWeekday(w)
			if err != nil {
				return nil, err
			}
			cal.Weekdays[day] = true
		}
	}

	for _, h := range holidays {
		d, err := time.ParseInLocation(holidayLayout, strings.TrimSpace(h), loc)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		cal.Holidays[d.Format(holidayLayout)] = true
	}

	return cal, nil
}

func (c *SessionCalendar) IsOpen(t time.Time) bool {
	local := t.In(c.Location)
	if c.Weekdays != nil && !c.Weekdays[local.Weekday()] {
		return false
	}
	if c.Holidays[local.Format(holidayLayout)] {
		return false
	}

	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.Location)
	sinceMidnight := local.Sub(midnight)
	return sinceMidnight >= c.Open && sinceMidnight < c.Close
}

// AlwaysOpen is a calendar without a trading window.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool { return true }

// ParseClock parses a HH:MM time of day into an offset from midnight.
// "24:00" is accepted as end of day.
func ParseClock(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if key == name || key == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
