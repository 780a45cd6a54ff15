package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEndDate(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"twelve months keeps month and day", date(2024, 3, 15), 12, date(2025, 3, 15)},
		{"scenario start", date(2024, 1, 10), 12, date(2025, 1, 10)},
		{"year rollover", date(2024, 11, 20), 3, date(2025, 2, 20)},
		{"jan 31 leap year clamps", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"jan 31 non leap clamps", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"mar 31 to apr 30", date(2024, 3, 31), 1, date(2024, 4, 30)},
		{"feb 29 plus twelve", date(2024, 2, 29), 12, date(2025, 2, 28)},
		{"feb 29 plus 48", date(2024, 2, 29), 48, date(2028, 2, 29)},
		{"max duration", date(2024, 1, 10), MaxMonths, date(2029, 1, 10)},
		{"min duration", date(2024, 12, 31), MinMonths, date(2025, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndDate(tt.start, tt.months)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestEndDate_KeepsClockAndLocation(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	start := time.Date(2024, 5, 31, 14, 30, 5, 0, loc)

	got, err := EndDate(start, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 14, 30, 5, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestEndDate_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		field  string
	}{
		{"zero months", date(2024, 1, 1), 0, "warranty_duration_months"},
		{"negative months", date(2024, 1, 1), -3, "warranty_duration_months"},
		{"too many months", date(2024, 1, 1), 61, "warranty_duration_months"},
		{"zero start", time.Time{}, 12, "warranty_start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndDate(tt.start, tt.months)
			require.Error(t, err)
			assert.True(t, got.IsZero())
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.field, apperr.FieldOf(err))
		})
	}
}

func TestRecompute_AnchorsOnStoredStart(t *testing.T) {
	start := date(2024, 1, 10)

	end, err := Recompute(start, 6)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 7, 10), end)

	_, err = Recompute(start, 0)
	assert.Equal(t, "invalid_period", apperr.CodeOf(err))
}

func TestAddMonths_Negative(t *testing.T) {
	assert.Equal(t, date(2023, 12, 31), AddMonths(date(2024, 3, 31), -3))
	assert.Equal(t, date(2023, 2, 28), AddMonths(date(2024, 2, 29), -12))
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want Status
	}{
		{"one second in the past", now.Add(-time.Second), StatusExpired},
		{"long ago", now.AddDate(-1, 0, 0), StatusExpired},
		{"exactly now", now, StatusExpiringSoon},
		{"tomorrow", now.Add(24 * time.Hour), StatusExpiringSoon},
		{"exactly thirty days", now.Add(ExpiringSoonWindow), StatusExpiringSoon},
		{"thirty days and a second", now.Add(ExpiringSoonWindow + time.Second), StatusActive},
		{"next year", now.AddDate(1, 0, 0), StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(now, tt.end))
		})
	}
}

func TestClassify_Properties(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for offset := -90 * 24; offset <= 90*24; offset += 7 {
		end := now.Add(time.Duration(offset) * time.Hour)
		got := Classify(now, end)
		switch {
		case end.Before(now):
			assert.Equal(t, StatusExpired, got, "offset %dh", offset)
		case end.After(now.Add(ExpiringSoonWindow)):
			assert.Equal(t, StatusActive, got, "offset %dh", offset)
		default:
			assert.Equal(t, StatusExpiringSoon, got, "offset %dh", offset)
		}
	}
}

func TestDaysLeft(t *testing.T) {
	now := date(2024, 6, 1)
	assert.Equal(t, 0, DaysLeft(now, now))
	assert.Equal(t, 0, DaysLeft(now, now.AddDate(0, 0, -1)))
	assert.Equal(t, 10, DaysLeft(now, now.AddDate(0, 0, 10)))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusExpiringSoon.Valid())
	assert.True(t, StatusExpired.Valid())
	assert.False(t, Status("all").Valid())
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	got := StartOfDay(time.Date(2024, 6, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, loc), got)
}
