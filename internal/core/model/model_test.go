package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  TimeOfDay
		ok    bool
	}{
		{"hour and minute", "07:30", TimeOfDay{Hour: 7, Minute: 30}, true},
		{"with seconds", "19:00:15", TimeOfDay{Hour: 19, Second: 15}, true},
		{"schedule table fraction", "07:00:00.0000000", TimeOfDay{Hour: 7}, true},
		{"padded", "  06:45  ", TimeOfDay{Hour: 6, Minute: 45}, true},
		{"hour out of range", "24:00", TimeOfDay{}, false},
		{"minute out of range", "12:60", TimeOfDay{}, false},
		{"garbage", "seven", TimeOfDay{}, false},
		{"empty", "", TimeOfDay{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.input)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTimeOfDayOn(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 3, 15, 13, 37, 0, 0, time.Local)
	got := TimeOfDay{Hour: 7, Minute: 30}.On(date)
	assert.Equal(t, time.Date(2024, 3, 15, 7, 30, 0, 0, time.Local), got)
}

func TestShiftWindowScheduleType(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	at := func(h int, dayOffset int) time.Time {
		return day.AddDate(0, 0, dayOffset).Add(time.Duration(h) * time.Hour)
	}

	tests := []struct {
		name string
		in   time.Time
		out  time.Time
		want ScheduleType
	}{
		{"fixed day shift", at(7, 0), at(17, 0), ScheduleFixed},
		{"two shift day", at(7, 0), at(19, 0), ScheduleTwoShiftDay},
		{"two shift night", at(19, 0), at(7, 1), ScheduleTwoShiftNight},
		{"three shift morning", at(6, 0), at(14, 0), ScheduleThreeShiftMorning},
		{"three shift afternoon", at(14, 0), at(22, 0), ScheduleThreeShiftAfternoon},
		{"three shift night", at(22, 0), at(6, 1), ScheduleThreeShiftNight},
		{"unrecognized", at(8, 0), at(16, 0), ScheduleUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ShiftWindow{In: tc.in, Out: tc.out}
			assert.Equal(t, tc.want, w.ScheduleType())
		})
	}
}

func TestNewDayKeyTruncatesToDate(t *testing.T) {
	t.Parallel()

	early := NewDayKey("MTI0001", time.Date(2024, 3, 15, 0, 0, 1, 0, time.Local))
	late := NewDayKey("MTI0001", time.Date(2024, 3, 15, 23, 59, 59, 0, time.Local))
	assert.Equal(t, early, late)

	nextDay := NewDayKey("MTI0001", time.Date(2024, 3, 16, 0, 0, 0, 0, time.Local))
	assert.NotEqual(t, early, nextDay)
}

func TestNewDayKeyIgnoresLocation(t *testing.T) {
	t.Parallel()

	wib := time.FixedZone("WIB", 7*3600)
	fromUTC := NewDayKey("MTI0001", time.Date(2024, 3, 15, 7, 10, 0, 0, time.UTC))
	fromWIB := NewDayKey("MTI0001", time.Date(2024, 3, 15, 0, 0, 0, 0, wib))
	assert.Equal(t, fromUTC, fromWIB)

	date := fromUTC.Date(wib)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, wib), date)
}
