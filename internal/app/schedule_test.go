package app

import (
	"errors"
	"testing"
	"time"

	"github.com/shoply/renewal-service/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextRenewalDate_Weekly(t *testing.T) {
	got, err := NextRenewalDate(date(2024, time.March, 4), domain.FrequencyWeekly)
	if err != nil {
		t.Fatalf("NextRenewalDate returned error: %v", err)
	}
	if want := date(2024, time.March, 11); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNextRenewalDate_Monthly(t *testing.T) {
	cases := []struct {
		name    string
		current time.Time
		want    time.Time
	}{
		{"mid-month", date(2024, time.March, 15), date(2024, time.April, 15)},
		{"jan 31 clamps to leap feb", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"jan 31 clamps to feb 28", date(2023, time.January, 31), date(2023, time.February, 28)},
		{"mar 31 clamps to apr 30", date(2024, time.March, 31), date(2024, time.April, 30)},
		{"dec rolls into next year", date(2024, time.December, 15), date(2025, time.January, 15)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextRenewalDate(tc.current, domain.FrequencyMonthly)
			if err != nil {
				t.Fatalf("NextRenewalDate returned error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextRenewalDate_InvalidFrequency(t *testing.T) {
	if _, err := NextRenewalDate(date(2024, time.March, 4), "fortnightly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestNearestDeliveryDate_WeeklyIsSaturday(t *testing.T) {
	cases := []struct {
		name    string
		current time.Time
		want    time.Time
	}{
		{"monday", date(2024, time.March, 4), date(2024, time.March, 9)},
		{"friday", date(2024, time.March, 8), date(2024, time.March, 9)},
		{"saturday is same day", date(2024, time.March, 9), date(2024, time.March, 9)},
		{"sunday rolls to next week", date(2024, time.March, 10), date(2024, time.March, 16)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NearestDeliveryDate(tc.current, domain.FrequencyWeekly)
			if err != nil {
				t.Fatalf("NearestDeliveryDate returned error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
			if got.Weekday() != time.Saturday {
				t.Errorf("expected a Saturday, got %s", got.Weekday())
			}
		})
	}
}

func TestNearestDeliveryDate_MonthlyIsFirstOfNextMonth(t *testing.T) {
	got, err := NearestDeliveryDate(date(2024, time.March, 15), domain.FrequencyMonthly)
	if err != nil {
		t.Fatalf("NearestDeliveryDate returned error: %v", err)
	}
	if want := date(2024, time.April, 1); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNextDeliveryDate_BufferSkipsImminentSlot(t *testing.T) {
	// Nearest Saturday is 2024-03-09 and the buffer is two days, so
	// Wednesday still makes the slot while Thursday does not.
	wednesday := date(2024, time.March, 6)
	thursday := date(2024, time.March, 7)

	got, err := NextDeliveryDate(wednesday, domain.FrequencyWeekly, 2)
	if err != nil {
		t.Fatalf("NextDeliveryDate returned error: %v", err)
	}
	if want := date(2024, time.March, 9); !got.Equal(want) {
		t.Errorf("expected %s from Wednesday, got %s", want, got)
	}

	got, err = NextDeliveryDate(thursday, domain.FrequencyWeekly, 2)
	if err != nil {
		t.Fatalf("NextDeliveryDate returned error: %v", err)
	}
	if want := date(2024, time.March, 16); !got.Equal(want) {
		t.Errorf("expected skip to %s from Thursday, got %s", want, got)
	}
}

func TestNextDeliveryDate_MonthlyBuffer(t *testing.T) {
	// March 30 is within two days of April 1, so delivery skips to May 1.
	got, err := NextDeliveryDate(date(2024, time.March, 30), domain.FrequencyMonthly, 2)
	if err != nil {
		t.Fatalf("NextDeliveryDate returned error: %v", err)
	}
	if want := date(2024, time.May, 1); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}

	got, err = NextDeliveryDate(date(2024, time.March, 15), domain.FrequencyMonthly, 2)
	if err != nil {
		t.Fatalf("NextDeliveryDate returned error: %v", err)
	}
	if want := date(2024, time.April, 1); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDaysUntil_IgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2024, time.March, 4, 23, 30, 0, 0, time.UTC)
	target := time.Date(2024, time.March, 6, 1, 0, 0, 0, time.UTC)
	if got := daysUntil(today, target); got != 2 {
		t.Errorf("expected 2 days, got %d", got)
	}
}
