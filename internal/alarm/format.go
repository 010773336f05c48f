package alarm

import (
	"fmt"
	"strings"
	"time"

	"timesup/internal/model"
)

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Remaining is a non-negative countdown split for display.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
}

func splitDuration(d time.Duration) Remaining {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return Remaining{
		Days:    total / (24 * 60),
		Hours:   total / 60 % 24,
		Minutes: total % 60,
	}
}

func (r Remaining) String() string {
	switch {
	case r.Days > 0:
		return fmt.Sprintf("%dd %dh", r.Days, r.Hours)
	case r.Hours > 0:
		return fmt.Sprintf("%dh %dm", r.Hours, r.Minutes)
	default:
		return fmt.Sprintf("%dm", r.Minutes)
	}
}

// FormatSelectedDays summarizes a repeat set the way alarm cards show it.
func FormatSelectedDays(days []time.Weekday) string {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}

	switch {
	case len(set) == 0 || len(set) == 7:
		return "Every day"
	case len(set) == 5 && !set[time.Sunday] && !set[time.Saturday]:
		return "Weekdays"
	case len(set) == 2 && set[time.Sunday] && set[time.Saturday]:
		return "Weekends"
	}

	names := make([]string, 0, len(set))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if set[d] {
			names = append(names, dayNames[d])
		}
	}
	return strings.Join(names, ", ")
}

// FormatDisplayTime renders t as "hh:mm AM".
func FormatDisplayTime(t time.Time) string {
	return t.Format("03:04 PM")
}

// FormatAlarmTime renders the alarm's own fields as "hh:mm AM".
func FormatAlarmTime(a model.Alarm) string {
	return fmt.Sprintf("%02d:%02d %s", a.Hour12, a.Minute, a.Meridiem)
}
