package alarm

import (
	"errors"
	"testing"
	"time"

	"timesup/internal/model"
)

// 2024-01-15 is a Monday.
func at(day, hour, minute, second int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, second, 0, time.UTC)
}

func newAlarm(hour12, minute int, meridiem model.Meridiem, days ...time.Weekday) model.Alarm {
	return model.Alarm{
		ID:       "a1",
		Hour12:   hour12,
		Minute:   minute,
		Meridiem: meridiem,
		Name:     "wake up",
		Days:     days,
		Enabled:  true,
	}
}

func TestHour24(t *testing.T) {
	tests := []struct {
		hour12   int
		meridiem model.Meridiem
		want     int
	}{
		{12, model.AM, 0},
		{1, model.AM, 1},
		{11, model.AM, 11},
		{12, model.PM, 12},
		{1, model.PM, 13},
		{11, model.PM, 23},
	}
	for _, tt := range tests {
		if got := Hour24(tt.hour12, tt.meridiem); got != tt.want {
			t.Errorf("Hour24(%d, %s) = %d, want %d", tt.hour12, tt.meridiem, got, tt.want)
		}
	}
}

func TestIsDueNow(t *testing.T) {
	daily := newAlarm(9, 0, model.AM)
	mwf := newAlarm(9, 0, model.AM, time.Monday, time.Wednesday, time.Friday)
	disabled := newAlarm(9, 0, model.AM)
	disabled.Enabled = false

	tests := []struct {
		name  string
		alarm model.Alarm
		now   time.Time
		want  bool
	}{
		{"one second early", daily, at(15, 8, 59, 59), false},
		{"on the minute", daily, at(15, 9, 0, 0), true},
		{"one second late", daily, at(15, 9, 0, 1), false},
		{"disabled", disabled, at(15, 9, 0, 0), false},
		{"repeat day not selected", mwf, at(16, 9, 0, 0), false},
		{"repeat day selected", mwf, at(17, 9, 0, 0), true},
		{"midnight alarm", newAlarm(12, 0, model.AM), at(16, 0, 0, 0), true},
		{"noon alarm", newAlarm(12, 0, model.PM), at(16, 12, 0, 0), true},
		{"wrong meridiem", newAlarm(9, 0, model.PM), at(15, 9, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDueNow(tt.alarm, tt.now); got != tt.want {
				t.Errorf("IsDueNow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFireInstant(t *testing.T) {
	tests := []struct {
		name  string
		alarm model.Alarm
		now   time.Time
		want  time.Time
	}{
		{"daily later today", newAlarm(9, 0, model.AM), at(15, 8, 59, 59), at(15, 9, 0, 0)},
		{"daily equal rolls over", newAlarm(9, 0, model.AM), at(15, 9, 0, 0), at(16, 9, 0, 0)},
		{"daily already passed", newAlarm(11, 30, model.PM), at(15, 23, 31, 0), at(16, 23, 30, 0)},
		{"repeat skips tuesday", newAlarm(9, 0, model.AM, time.Monday, time.Wednesday, time.Friday), at(16, 9, 0, 0), at(17, 9, 0, 0)},
		{"repeat today still ahead", newAlarm(9, 0, model.AM, time.Monday), at(15, 7, 0, 0), at(15, 9, 0, 0)},
		{"repeat single day a week out", newAlarm(9, 0, model.AM, time.Monday), at(15, 9, 0, 0), at(22, 9, 0, 0)},
		{"repeat crosses month end", newAlarm(6, 15, model.AM, time.Thursday), at(31, 7, 0, 0), time.Date(2024, time.February, 1, 6, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextFireInstant(tt.alarm, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextFireInstant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextFireInstantInvalidDays(t *testing.T) {
	a := newAlarm(9, 0, model.AM, time.Weekday(9))
	if _, err := NextFireInstant(a, at(15, 8, 0, 0)); !errors.Is(err, ErrNoMatchingDay) {
		t.Fatalf("expected ErrNoMatchingDay, got %v", err)
	}
}

func TestNextFireInstantKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// Clocks spring forward on Sunday 2024-03-10.
	now := time.Date(2024, time.March, 9, 10, 0, 0, 0, loc)
	got, err := NextFireInstant(newAlarm(9, 0, model.AM), now)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, time.March, 10, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFireInstantProperties(t *testing.T) {
	start := at(15, 0, 0, 0)
	daySets := [][]time.Weekday{
		nil,
		{time.Sunday},
		{time.Monday, time.Wednesday, time.Friday},
		{time.Saturday, time.Sunday},
		{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	}

	for step := 0; step < 7*24*4; step++ {
		now := start.Add(time.Duration(step) * 37 * time.Minute)
		for _, days := range daySets {
			a := newAlarm(7, 45, model.PM, days...)
			got, err := NextFireInstant(a, now)
			if err != nil {
				t.Fatalf("now=%v days=%v: %v", now, days, err)
			}
			again, _ := NextFireInstant(a, now)
			if !got.Equal(again) {
				t.Fatalf("not deterministic: %v vs %v", got, again)
			}
			if !got.After(now) {
				t.Fatalf("now=%v days=%v: %v is not after now", now, days, got)
			}
			if len(days) == 0 && got.Sub(now) > 24*time.Hour {
				t.Fatalf("daily alarm more than a day out: now=%v got=%v", now, got)
			}
			if len(days) > 0 && !firesOn(days, got.Weekday()) {
				t.Fatalf("weekday %v not in %v", got.Weekday(), days)
			}
			if got.Hour() != 19 || got.Minute() != 45 || got.Second() != 0 {
				t.Fatalf("wrong wall time %v", got)
			}
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	tests := []struct {
		name  string
		alarm model.Alarm
		now   time.Time
		want  Remaining
		text  string
	}{
		{"minutes only", newAlarm(9, 0, model.AM), at(15, 8, 35, 0), Remaining{Minutes: 25}, "25m"},
		{"hours and minutes", newAlarm(9, 0, model.AM), at(15, 6, 20, 30), Remaining{Hours: 2, Minutes: 39}, "2h 39m"},
		{"days", newAlarm(9, 0, model.AM, time.Friday), at(15, 8, 0, 0), Remaining{Days: 4, Hours: 1}, "4d 1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimeRemaining(tt.alarm, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("TimeRemaining() = %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.text {
				t.Errorf("String() = %q, want %q", got.String(), tt.text)
			}
		})
	}
}
