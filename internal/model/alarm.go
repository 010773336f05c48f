package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Meridiem string

const (
	AM Meridiem = "AM"
	PM Meridiem = "PM"
)

// Alarm is a wall-clock alarm. An empty Days slice means the alarm repeats
// every day.
type Alarm struct {
	ID        string
	Hour12    int
	Minute    int
	Meridiem  Meridiem
	Name      string
	Days      []time.Weekday
	Enabled   bool
	OwnerID   string
	CreatedAt time.Time
}

// alarmDocument is the wire and storage shape of an Alarm.
type alarmDocument struct {
	ID        string    `json:"id"`
	Hours     string    `json:"hours"`
	Minutes   string    `json:"minutes"`
	AmPm      string    `json:"ampm"`
	Name      string    `json:"name"`
	Days      []int     `json:"days"`
	IsSet     *bool     `json:"isSet,omitempty"`
	OwnerID   string    `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a Alarm) MarshalJSON() ([]byte, error) {
	enabled := a.Enabled
	return json.Marshal(alarmDocument{
		ID:        a.ID,
		Hours:     fmt.Sprintf("%02d", a.Hour12),
		Minutes:   fmt.Sprintf("%02d", a.Minute),
		AmPm:      string(a.Meridiem),
		Name:      a.Name,
		Days:      weekdaysToInts(a.Days),
		IsSet:     &enabled,
		OwnerID:   a.OwnerID,
		CreatedAt: a.CreatedAt,
	})
}

func (a *Alarm) UnmarshalJSON(data []byte) error {
	var doc alarmDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	hour, err := strconv.Atoi(doc.Hours)
	if err != nil {
		return fmt.Errorf("alarm hours %q: %w", doc.Hours, err)
	}
	minute, err := strconv.Atoi(doc.Minutes)
	if err != nil {
		return fmt.Errorf("alarm minutes %q: %w", doc.Minutes, err)
	}

	*a = Alarm{
		ID:        doc.ID,
		Hour12:    hour,
		Minute:    minute,
		Meridiem:  Meridiem(doc.AmPm),
		Name:      doc.Name,
		Days:      intsToWeekdays(doc.Days),
		Enabled:   true,
		OwnerID:   doc.OwnerID,
		CreatedAt: doc.CreatedAt,
	}
	if doc.IsSet != nil {
		a.Enabled = *doc.IsSet
	}
	return nil
}

// Clone returns a copy that shares no memory with a.
func (a Alarm) Clone() Alarm {
	if a.Days != nil {
		a.Days = append([]time.Weekday(nil), a.Days...)
	}
	return a
}

// AlarmPatch holds a partial update. Nil fields are left untouched.
type AlarmPatch struct {
	Hour12   *int
	Minute   *int
	Meridiem *Meridiem
	Name     *string
	Days     *[]time.Weekday
	Enabled  *bool
}

type alarmPatchDocument struct {
	Hours   *string `json:"hours,omitempty"`
	Minutes *string `json:"minutes,omitempty"`
	AmPm    *string `json:"ampm,omitempty"`
	Name    *string `json:"name,omitempty"`
	Days    *[]int  `json:"days,omitempty"`
	IsSet   *bool   `json:"isSet,omitempty"`
}

func (p AlarmPatch) MarshalJSON() ([]byte, error) {
	doc := alarmPatchDocument{Name: p.Name, IsSet: p.Enabled}
	if p.Hour12 != nil {
		hours := fmt.Sprintf("%02d", *p.Hour12)
		doc.Hours = &hours
	}
	if p.Minute != nil {
		minutes := fmt.Sprintf("%02d", *p.Minute)
		doc.Minutes = &minutes
	}
	if p.Meridiem != nil {
		ampm := string(*p.Meridiem)
		doc.AmPm = &ampm
	}
	if p.Days != nil {
		days := weekdaysToInts(*p.Days)
		doc.Days = &days
	}
	return json.Marshal(doc)
}

func (p *AlarmPatch) UnmarshalJSON(data []byte) error {
	var doc alarmPatchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	patch := AlarmPatch{Name: doc.Name, Enabled: doc.IsSet}
	if doc.Hours != nil {
		hour, err := strconv.Atoi(*doc.Hours)
		if err != nil {
			return fmt.Errorf("alarm hours %q: %w", *doc.Hours, err)
		}
		patch.Hour12 = &hour
	}
	if doc.Minutes != nil {
		minute, err := strconv.Atoi(*doc.Minutes)
		if err != nil {
			return fmt.Errorf("alarm minutes %q: %w", *doc.Minutes, err)
		}
		patch.Minute = &minute
	}
	if doc.AmPm != nil {
		meridiem := Meridiem(*doc.AmPm)
		patch.Meridiem = &meridiem
	}
	if doc.Days != nil {
		days := intsToWeekdays(*doc.Days)
		patch.Days = &days
	}
	*p = patch
	return nil
}

// Apply returns a copy of a with the patch applied.
func (p AlarmPatch) Apply(a Alarm) Alarm {
	out := a.Clone()
	if p.Hour12 != nil {
		out.Hour12 = *p.Hour12
	}
	if p.Minute != nil {
		out.Minute = *p.Minute
	}
	if p.Meridiem != nil {
		out.Meridiem = *p.Meridiem
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Days != nil {
		out.Days = NormalizeDays(*p.Days)
	}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	return out
}

// NormalizeDays returns the days sorted Sunday first. Duplicates are kept so
// that validation can still reject them.
func NormalizeDays(days []time.Weekday) []time.Weekday {
	out := make([]time.Weekday, len(days))
	copy(out, days)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func weekdaysToInts(days []time.Weekday) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, int(d))
	}
	return out
}

func intsToWeekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}
