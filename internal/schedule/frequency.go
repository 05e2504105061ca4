// Package schedule holds the date arithmetic behind check-in cadences:
// frequency parsing, reminder trigger computation and birthday countdowns.
package schedule

import (
	"fmt"
	"time"
)

// Frequency is how often the user wants to be reminded to reach out to a
// friend.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyBimonthly  Frequency = "bimonthly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencyBiannually Frequency = "biannually"
	FrequencyYearly     Frequency = "yearly"
	FrequencyNever      Frequency = "never"
)

// cutoffDays maps each frequency to the length of its check-in window in
// days. FrequencyNever is deliberately absent: it has no window.
var cutoffDays = map[Frequency]int{
	FrequencyDaily:      1,
	FrequencyWeekly:     7,
	FrequencyBimonthly:  14,
	FrequencyMonthly:    30,
	FrequencyQuarterly:  90,
	FrequencyBiannually: 180,
	FrequencyYearly:     365,
}

// ParseFrequency validates s against the known frequency values. An
// unrecognized value is a programming error on the caller's side, not
// something to recover from.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown reminder frequency %q", s)
	}
	return f, nil
}

// Valid reports whether f is one of the declared frequency values.
func (f Frequency) Valid() bool {
	if f == FrequencyNever {
		return true
	}
	_, ok := cutoffDays[f]
	return ok
}

// CutoffDays returns the length of the check-in window for f in days.
// The second return is false for FrequencyNever, which has no window.
func (f Frequency) CutoffDays() (int, bool) {
	d, ok := cutoffDays[f]
	return d, ok
}

// DaysAgoCutoff returns the instant CutoffDays before now. ok is false for
// FrequencyNever. An unrecognized frequency is an error.
func DaysAgoCutoff(f Frequency, now time.Time) (cutoff time.Time, ok bool, err error) {
	if !f.Valid() {
		return time.Time{}, false, fmt.Errorf("unknown reminder frequency %q", f)
	}
	days, ok := f.CutoffDays()
	if !ok {
		return time.Time{}, false, nil
	}
	return now.AddDate(0, 0, -days), true, nil
}
