package schedule

import (
	"fmt"
	"time"
)

// DaysUntilNextBirthday counts the days from now until the next anniversary
// of birthday's month/day, rolling to next year if this year's date has
// already passed. Returns 0 when the anniversary is today and -1 for a zero
// birthday.
func DaysUntilNextBirthday(birthday, now time.Time) int {
	if birthday.IsZero() {
		return -1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := time.Date(now.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(now.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(today).Hours() / 24)
}

// DaysSince counts whole calendar days between then and now, ignoring the
// clock time of either.
func DaysSince(then, now time.Time) int {
	a := time.Date(then.Year(), then.Month(), then.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// CheckInLabel renders the "how long since I last reached out" text shown
// next to each friend.
func CheckInLabel(last *time.Time, now time.Time) string {
	if last == nil {
		return "Never checked in"
	}
	switch days := DaysSince(*last, now); days {
	case 0:
		return "Checked in today"
	case 1:
		return "Checked in 1 day ago"
	default:
		return fmt.Sprintf("Checked in %d days ago", days)
	}
}
