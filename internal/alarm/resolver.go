// Package alarm resolves when wall-clock alarms fire and drives the
// once-per-second check that rings them.
package alarm

import (
	"errors"
	"time"

	"timesup/internal/model"
)

// ErrNoMatchingDay is returned when a week-long scan finds no weekday in the
// alarm's repeat set. Validated alarms never produce it.
var ErrNoMatchingDay = errors.New("alarm: no matching weekday within 7 days")

// Hour24 converts a 12-hour clock hour to 0-23. 12 AM is 0 and 12 PM is 12.
func Hour24(hour12 int, meridiem model.Meridiem) int {
	hour := hour12 % 12
	if meridiem == model.PM {
		hour += 12
	}
	return hour
}

// IsDueNow reports whether a rings at now. Only the exact zero second of the
// matching minute counts, so an alarm is due at most once per minute.
func IsDueNow(a model.Alarm, now time.Time) bool {
	if !a.Enabled {
		return false
	}
	if now.Hour() != Hour24(a.Hour12, a.Meridiem) || now.Minute() != a.Minute || now.Second() != 0 {
		return false
	}
	return firesOn(a.Days, now.Weekday())
}

// NextFireInstant returns the first instant strictly after now at which a
// rings, in now's location.
func NextFireInstant(a model.Alarm, now time.Time) (time.Time, error) {
	hour := Hour24(a.Hour12, a.Meridiem)
	today := candidateOn(now, 0, hour, a.Minute)

	if len(a.Days) == 0 {
		if today.After(now) {
			return today, nil
		}
		return candidateOn(now, 1, hour, a.Minute), nil
	}

	if firesOn(a.Days, now.Weekday()) && today.After(now) {
		return today, nil
	}
	for offset := 1; offset <= 7; offset++ {
		candidate := candidateOn(now, offset, hour, a.Minute)
		if firesOn(a.Days, candidate.Weekday()) {
			return candidate, nil
		}
	}
	return time.Time{}, ErrNoMatchingDay
}

// TimeRemaining is the whole days, hours and minutes until a next rings.
func TimeRemaining(a model.Alarm, now time.Time) (Remaining, error) {
	next, err := NextFireInstant(a, now)
	if err != nil {
		return Remaining{}, err
	}
	return splitDuration(next.Sub(now)), nil
}

// candidateOn builds the wall-clock instant offset calendar days from now.
// time.Date normalizes day overflow and keeps the wall time across DST shifts.
func candidateOn(now time.Time, offset, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+offset, hour, minute, 0, 0, now.Location())
}

func firesOn(days []time.Weekday, day time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
