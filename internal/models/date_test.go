package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"calendar date", `"2024-01-10"`, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", `"2024-01-10T09:30:00Z"`, time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), false},
		{"empty", `""`, time.Time{}, false},
		{"garbage", `"10/01/2024"`, time.Time{}, true},
		{"not a string", `20240110`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Time), "got %s", d.Time)
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-10"`, string(b))

	b, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(b))
}

func TestParseDate_Location(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	got, err := ParseDate("2024-03-15", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc), got)
}
