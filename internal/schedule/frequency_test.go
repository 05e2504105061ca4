package schedule

import (
	"testing"
	"time"
)

func TestParseFrequency(t *testing.T) {
	valid := []string{"daily", "weekly", "bimonthly", "monthly", "quarterly", "biannually", "yearly", "never"}
	for _, s := range valid {
		f, err := ParseFrequency(s)
		if err != nil {
			t.Errorf("ParseFrequency(%q) failed: %v", s, err)
		}
		if string(f) != s {
			t.Errorf("ParseFrequency(%q) = %q", s, f)
		}
	}

	for _, s := range []string{"", "fortnightly", "DAILY", "sometimes"} {
		if _, err := ParseFrequency(s); err == nil {
			t.Errorf("ParseFrequency(%q) should fail", s)
		}
	}
}

func TestCutoffDays(t *testing.T) {
	want := map[Frequency]int{
		FrequencyDaily:      1,
		FrequencyWeekly:     7,
		FrequencyBimonthly:  14,
		FrequencyMonthly:    30,
		FrequencyQuarterly:  90,
		FrequencyBiannually: 180,
		FrequencyYearly:     365,
	}
	for f, days := range want {
		got, ok := f.CutoffDays()
		if !ok {
			t.Errorf("%s: expected a cutoff window", f)
		}
		if got != days {
			t.Errorf("%s: cutoff = %d, want %d", f, got, days)
		}
	}

	if _, ok := FrequencyNever.CutoffDays(); ok {
		t.Error("never should have no cutoff window")
	}
}

func TestDaysAgoCutoff(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	cutoff, ok, err := DaysAgoCutoff(FrequencyWeekly, now)
	if err != nil || !ok {
		t.Fatalf("DaysAgoCutoff(weekly) = ok=%v, err=%v", ok, err)
	}
	want := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)
	if !cutoff.Equal(want) {
		t.Errorf("weekly cutoff = %v, want %v", cutoff, want)
	}

	if _, ok, err := DaysAgoCutoff(FrequencyNever, now); err != nil || ok {
		t.Errorf("never: ok=%v, err=%v, want no window and no error", ok, err)
	}

	if _, _, err := DaysAgoCutoff(Frequency("hourly"), now); err == nil {
		t.Error("unknown frequency should error")
	}
}
