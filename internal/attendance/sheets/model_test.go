package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAggregates(t *testing.T) {
	recs := []Record{
		{Status: StatusPresent},
		{Status: StatusPresent},
		{Status: StatusAbsent},
		{Status: StatusLate},
		{Status: StatusJustifiedAbsent},
	}

	agg := computeAggregates(recs)
	assert.Equal(t, 2, agg.Present)
	assert.Equal(t, 1, agg.Absent)
	assert.Equal(t, 1, agg.Late)
	assert.Equal(t, 1, agg.Justified)
	assert.Equal(t, 5, agg.Total())
}

func TestAttendanceRate(t *testing.T) {
	tests := []struct {
		name    string
		present int
		total   int
		want    float64
	}{
		{"zero total", 0, 0, 0},
		{"all present", 10, 10, 100},
		{"one third", 1, 3, 33.33},
		{"two thirds", 2, 3, 66.67},
		{"half", 1, 2, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attendanceRate(tt.present, tt.total))
		})
	}
}

func TestMinutesLate(t *testing.T) {
	arrival := func(s string) *string { return &s }

	tests := []struct {
		name    string
		start   string
		arrival *string
		want    int
	}{
		{"15 minutes late", "09:00", arrival("09:15"), 15},
		{"on time", "09:00", arrival("09:00"), 0},
		{"early arrival clamps to zero", "09:00", arrival("08:50"), 0},
		{"nil arrival", "09:00", nil, 0},
		{"arrival with seconds", "09:00", arrival("09:05:30"), 5},
		{"unparsable arrival", "09:00", arrival("not-a-time"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minutesLate(tt.start, tt.arrival))
		})
	}
}

func TestValidMarkStatus(t *testing.T) {
	assert.True(t, validMarkStatus(StatusPresent))
	assert.True(t, validMarkStatus(StatusAbsent))
	assert.True(t, validMarkStatus(StatusLate))
	// JUSTIFIED_ABSENT は直接マーク不可
	assert.False(t, validMarkStatus(StatusJustifiedAbsent))
	assert.False(t, validMarkStatus("EXCUSED"))
	assert.False(t, validMarkStatus(""))
}
