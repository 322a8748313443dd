/**
 * @description
 * Pure date arithmetic for renewal and delivery scheduling. No side effects;
 * everything operates on the date component of the given times.
 *
 * Rules:
 * - Weekly cycles renew every 7 days and deliver on Saturdays.
 * - Monthly cycles renew one calendar month later (clamped to month end, so
 *   Jan 31 renews on the last day of February) and deliver on the first day
 *   of the next month.
 * - A delivery is only assigned to the nearest cycle when there is more than
 *   a buffer of days left to fulfill it; otherwise it skips to the cycle
 *   after next.
 */

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/shoply/renewal-service/internal/domain"
)

// ErrInvalidFrequency is returned for a frequency outside weekly/monthly.
var ErrInvalidFrequency = errors.New("invalid renewal frequency")

// DefaultDeliveryBufferDays is the minimum fulfillment lead time.
const DefaultDeliveryBufferDays = 2

// NextRenewalDate returns the renewal date one cycle after current.
func NextRenewalDate(current time.Time, frequency string) (time.Time, error) {
	switch frequency {
	case domain.FrequencyWeekly:
		return current.AddDate(0, 0, 7), nil
	case domain.FrequencyMonthly:
		return addCalendarMonth(current), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}
}

// NearestDeliveryDate returns the first delivery slot on or after current:
// the next Saturday for weekly cycles, the first day of the next month for
// monthly cycles.
func NearestDeliveryDate(current time.Time, frequency string) (time.Time, error) {
	day := startOfDay(current)
	switch frequency {
	case domain.FrequencyWeekly:
		daysAhead := int((time.Saturday - day.Weekday() + 7) % 7)
		return day.AddDate(0, 0, daysAhead), nil
	case domain.FrequencyMonthly:
		return time.Date(day.Year(), day.Month()+1, 1, 0, 0, 0, 0, day.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}
}

// NextDeliveryDate assigns the delivery slot for a cycle starting at current.
// When current falls inside the buffer window before the nearest slot, the
// slot is too close to fulfill and the cycle after next is used instead.
func NextDeliveryDate(current time.Time, frequency string, bufferDays int) (time.Time, error) {
	nearest, err := NearestDeliveryDate(current, frequency)
	if err != nil {
		return time.Time{}, err
	}

	cutoff := nearest.AddDate(0, 0, -bufferDays)
	if startOfDay(current).Before(cutoff) {
		return nearest, nil
	}
	return NearestDeliveryDate(current.AddDate(0, 0, 7), frequency)
}

// addCalendarMonth adds one calendar month, clamping to the last day of the
// target month rather than letting the date normalize past it.
func addCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	// Day 0 of month+2 is the last day of month+1.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	target := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// startOfDay truncates to midnight in t's location.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// daysUntil counts whole calendar days from today to target.
func daysUntil(today, target time.Time) int {
	return int(startOfDay(target).Sub(startOfDay(today)).Hours() / 24)
}
