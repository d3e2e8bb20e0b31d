package hangout

import (
	"fmt"
	"time"
)

const Collection = "hangouts"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

const StatusPlanned = "planned"

// Hangout is a planned meeting created on the hangout page. Date and times are
// local wall-clock strings as entered in the form.
type Hangout struct {
	Id          string    `doc:"-"`
	UserId      string    `doc:"userId"`
	Title       string    `doc:"title"`
	Date        string    `doc:"date"`
	StartTime   string    `doc:"startTime"`
	EndTime     string    `doc:"endTime"`
	Location    string    `doc:"location"`
	Description string    `doc:"description"`
	Status      string    `doc:"status"`
	CreatedAt   time.Time `doc:"createdAt"`
}

// Start combines Date and StartTime in loc; a missing start time means midnight.
func (h Hangout) Start(loc *time.Location) (time.Time, error) {
	return combine(h.Date, h.StartTime, loc)
}

// End combines Date and EndTime in loc. ok is false when the hangout has no end time.
func (h Hangout) End(loc *time.Location) (end time.Time, ok bool, err error) {
	if h.EndTime == "" {
		return time.Time{}, false, nil
	}
	end, err = combine(h.Date, h.EndTime, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return end, true, nil
}

// IsUpcoming reports whether the hangout starts at or after now. Hangouts without
// a parseable date count as upcoming.
func (h Hangout) IsUpcoming(now time.Time) bool {
	start, err := h.Start(now.Location())
	if err != nil {
		return true
	}
	return !start.Before(now)
}

func combine(date string, clock string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("hangout has no date")
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hangout date %q: %w", date, err)
	}
	if clock == "" {
		return day, nil
	}
	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hangout time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
