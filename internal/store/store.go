// Package store wraps the SQLite tables behind the friend, check-in and
// reminder repositories. All timestamps are persisted as normalized UTC
// strings so ordering comparisons work lexically in SQL.
package store

import (
	"fmt"
	"time"
)

const (
	// dateTimeLayout is the normalized form check-in timestamps are stored in.
	dateTimeLayout = "2006-01-02 15:04:05"
	// dateLayout is the form birthdays are stored in (no clock component).
	dateLayout = "2006-01-02"
)

func formatDateTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed stored date %q: %w", s, err)
	}
	return t, nil
}
