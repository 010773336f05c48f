package alarm

import (
	"fmt"
	"strings"
	"time"

	"timesup/internal/model"
)

// ValidationError rejects an alarm definition before it is stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid alarm %s: %s", e.Field, e.Reason)
}

// Validate checks the alarm definition invariants.
func Validate(a model.Alarm) error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "please give your alarm a name"}
	}
	if a.Hour12 < 1 || a.Hour12 > 12 {
		return &ValidationError{Field: "hours", Reason: "must be between 1 and 12"}
	}
	if a.Minute < 0 || a.Minute > 59 {
		return &ValidationError{Field: "minutes", Reason: "must be between 0 and 59"}
	}
	if a.Meridiem != model.AM && a.Meridiem != model.PM {
		return &ValidationError{Field: "ampm", Reason: "must be AM or PM"}
	}

	seen := make(map[time.Weekday]bool, len(a.Days))
	for _, d := range a.Days {
		if d < time.Sunday || d > time.Saturday {
			return &ValidationError{Field: "days", Reason: fmt.Sprintf("day %d out of range 0-6", d)}
		}
		if seen[d] {
			return &ValidationError{Field: "days", Reason: fmt.Sprintf("day %d repeated", d)}
		}
		seen[d] = true
	}
	return nil
}
