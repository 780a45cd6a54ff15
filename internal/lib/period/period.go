// Package period implements warranty date arithmetic and status
// classification.
//
// End dates are computed in calendar months. When the start day does not
// exist in the target month the end date is clamped to that month's last day,
// so 2024-01-31 plus one month is 2024-02-29 and never rolls into March.
package period

import (
	"time"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
)

// Duration bounds in months.
const (
	MinMonths = 1
	MaxMonths = 60
)

// ExpiringSoonWindow is how far ahead of now an end date counts as expiring soon.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Status is the derived lifecycle state of a warranty.
type Status string

// Lifecycle states.
const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpiringSoon, StatusExpired:
		return true
	}
	return false
}

// ValidateMonths checks that months lies in [MinMonths, MaxMonths].
func ValidateMonths(months int) error {
	const op = "period.ValidateMonths"
	if months < MinMonths || months > MaxMonths {
		return apperr.Validation(op, "warranty_duration_months", "invalid_period")
	}
	return nil
}

// EndDate adds months calendar months to start. The clock time and location
// of start are kept.
func EndDate(start time.Time, months int) (time.Time, error) {
	const op = "period.EndDate"
	if start.IsZero() {
		return time.Time{}, apperr.Validation(op, "warranty_start_date", "invalid_date")
	}
	if err := ValidateMonths(months); err != nil {
		return time.Time{}, err
	}
	return AddMonths(start, months), nil
}

// Recompute gives the end date of an existing warranty for a new duration.
// The stored start stays the anchor, so editing a period never restarts it.
func Recompute(start time.Time, months int) (time.Time, error) {
	return EndDate(start, months)
}

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the target month. n may be negative.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + n
	ty := y + floorDiv(total, 12)
	tm := time.Month(floorMod(total, 12) + 1)

	if last := DaysIn(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Classify derives the status of a warranty ending at end, as seen at now.
// An end date equal to now is still expiring soon; it expires strictly after.
func Classify(now, end time.Time) Status {
	switch {
	case end.Before(now):
		return StatusExpired
	case !end.After(now.Add(ExpiringSoonWindow)):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// DaysLeft returns the whole days remaining until end, zero once expired.
func DaysLeft(now, end time.Time) int {
	if !end.After(now) {
		return 0
	}
	return int(end.Sub(now).Hours()) / 24
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
