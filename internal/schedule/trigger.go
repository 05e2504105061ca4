package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrNeverScheduled is returned by NextTrigger for FrequencyNever: there is
// nothing to schedule.
var ErrNeverScheduled = errors.New("frequency never does not schedule reminders")

// TriggerSpec describes when a reminder notification should fire. Hour and
// Minute are always set; exactly one cadence shape is populated depending on
// the frequency: nothing extra for daily, Weekday for week-based cadences,
// WeekOfMonth+Weekday for month-based cadences, Month+Day for yearly.
type TriggerSpec struct {
	Hour        int           `json:"hour"`
	Minute      int           `json:"minute"`
	Weekday     *time.Weekday `json:"weekday,omitempty"`
	WeekOfMonth *int          `json:"week_of_month,omitempty"`
	Month       *time.Month   `json:"month,omitempty"`
	Day         *int          `json:"day,omitempty"`
	Repeats     bool          `json:"repeats"`
}

// dayParts are the inclusive [min,max] hour buckets reminders fire in:
// morning, midday, evening. The bucket is picked uniformly first, then the
// hour uniformly within it, so reminders don't all land at the same instant.
var dayParts = [][2]int{
	{8, 11},
	{12, 16},
	{17, 21},
}

func randomClockTime() (hour, minute int) {
	part := dayParts[rand.Intn(len(dayParts))]
	hour = part[0] + rand.Intn(part[1]-part[0]+1)
	minute = rand.Intn(60)
	return hour, minute
}

// NextTrigger builds the trigger descriptor for a reminder of frequency f
// anchored at anchor (the friend's creation date, or the latest check-in when
// postponing). The clock time is randomized; the cadence fields come from the
// anchor.
func NextTrigger(f Frequency, anchor time.Time) (TriggerSpec, error) {
	if !f.Valid() {
		return TriggerSpec{}, fmt.Errorf("unknown reminder frequency %q", f)
	}
	if f == FrequencyNever {
		return TriggerSpec{}, ErrNeverScheduled
	}

	hour, minute := randomClockTime()
	spec := TriggerSpec{Hour: hour, Minute: minute, Repeats: true}

	switch f {
	case FrequencyDaily:
		// clock time only
	case FrequencyWeekly, FrequencyBimonthly:
		wd := anchor.Weekday()
		spec.Weekday = &wd
	case FrequencyMonthly, FrequencyQuarterly, FrequencyBiannually:
		wd := anchor.Weekday()
		week := weekOfMonth(anchor)
		spec.Weekday = &wd
		spec.WeekOfMonth = &week
	case FrequencyYearly:
		m := anchor.Month()
		d := anchor.Day()
		spec.Month = &m
		spec.Day = &d
	}
	return spec, nil
}

// BirthdayTrigger builds a yearly trigger on the month/day of birthday, with
// a randomized morning-bucket-style clock time like every other reminder.
func BirthdayTrigger(birthday time.Time) TriggerSpec {
	hour, minute := randomClockTime()
	m := birthday.Month()
	d := birthday.Day()
	return TriggerSpec{Hour: hour, Minute: minute, Month: &m, Day: &d, Repeats: true}
}

// weekOfMonth returns which occurrence of t's weekday within the month t is,
// capped at 4 so "fifth Monday" months still resolve.
func weekOfMonth(t time.Time) int {
	week := (t.Day()-1)/7 + 1
	if week > 4 {
		week = 4
	}
	return week
}

// NextFireTime returns the first instant strictly after `after` at which the
// trigger fires, in after's location.
func (t TriggerSpec) NextFireTime(after time.Time) time.Time {
	switch {
	case t.Month != nil && t.Day != nil:
		return t.nextYearly(after)
	case t.WeekOfMonth != nil && t.Weekday != nil:
		return t.nextMonthly(after)
	case t.Weekday != nil:
		return t.nextWeekly(after)
	default:
		return t.nextDaily(after)
	}
}

func (t TriggerSpec) nextDaily(after time.Time) time.Time {
	fire := time.Date(after.Year(), after.Month(), after.Day(), t.Hour, t.Minute, 0, 0, after.Location())
	if !fire.After(after) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

func (t TriggerSpec) nextWeekly(after time.Time) time.Time {
	fire := time.Date(after.Year(), after.Month(), after.Day(), t.Hour, t.Minute, 0, 0, after.Location())
	offset := (int(*t.Weekday) - int(fire.Weekday()) + 7) % 7
	fire = fire.AddDate(0, 0, offset)
	if !fire.After(after) {
		fire = fire.AddDate(0, 0, 7)
	}
	return fire
}

func (t TriggerSpec) nextMonthly(after time.Time) time.Time {
	for months := 0; ; months++ {
		base := time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, after.Location()).AddDate(0, months, 0)
		fire := nthWeekdayOfMonth(base, *t.Weekday, *t.WeekOfMonth, t.Hour, t.Minute)
		if fire.After(after) {
			return fire
		}
	}
}

func (t TriggerSpec) nextYearly(after time.Time) time.Time {
	fire := time.Date(after.Year(), *t.Month, *t.Day, t.Hour, t.Minute, 0, 0, after.Location())
	if !fire.After(after) {
		fire = time.Date(after.Year()+1, *t.Month, *t.Day, t.Hour, t.Minute, 0, 0, after.Location())
	}
	return fire
}

// nthWeekdayOfMonth returns the nth occurrence of weekday in the month that
// firstOfMonth falls in, at the given clock time.
func nthWeekdayOfMonth(firstOfMonth time.Time, weekday time.Weekday, n, hour, minute int) time.Time {
	first := time.Date(firstOfMonth.Year(), firstOfMonth.Month(), 1, hour, minute, 0, 0, firstOfMonth.Location())
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}
