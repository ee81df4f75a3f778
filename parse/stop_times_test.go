package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

func TestParseStopTimeTime(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected string
		hour     int
		err      bool
	}{
		{"00:00:00", "000000", 0, false},
		{"8:30:00", "083000", 8, false},
		{"23:59:59", "235959", 23, false},

		// After-midnight times fold back into 0-23.
		{"24:00:00", "240000", 0, false},
		{"25:15:00", "251500", 1, false},

		{"12:00", "", 0, true},
		{"12:00:00:00", "", 0, true},
		{"-1:00:00", "", 0, true},
		{"12:60:00", "", 0, true},
		{"12:00:61", "", 0, true},
		{"abc", "", 0, true},
		{"", "", 0, true},
	} {
		t.Run(tc.input, func(t *testing.T) {
			got, hour, err := parseStopTimeTime(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.hour, hour)
		})
	}
}

func TestParseStopTimes(t *testing.T) {
	trips := map[string]bool{"t1": true, "t2": true}
	stops := map[string]bool{"s1": true, "s2": true}

	for _, tc := range []struct {
		name     string
		content  string
		expected []model.StopTime
		err      bool
	}{
		{
			"basic",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
t1,s1,1,06:00:00,06:00:30
t1,s2,2,06:15:00,06:16:00`,
			[]model.StopTime{
				{
					TripID: "t1", StopID: "s1", StopSequence: 1,
					Arrival: "060000", Departure: "060030",
					ArrivalHour: 6, DepartureHour: 6,
				},
				{
					TripID: "t1", StopID: "s2", StopSequence: 2,
					Arrival: "061500", Departure: "061600",
					ArrivalHour: 6, DepartureHour: 6,
				},
			},
			false,
		},

		{
			"after midnight",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
t2,s1,1,24:05:00,24:06:00
t2,s2,2,25:30:00,25:31:00`,
			[]model.StopTime{
				{
					TripID: "t2", StopID: "s1", StopSequence: 1,
					Arrival: "240500", Departure: "240600",
					ArrivalHour: 0, DepartureHour: 0,
				},
				{
					TripID: "t2", StopID: "s2", StopSequence: 2,
					Arrival: "253000", Departure: "253100",
					ArrivalHour: 1, DepartureHour: 1,
				},
			},
			false,
		},

		{
			"dwell across hour boundary",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
t1,s1,1,06:59:30,07:00:30`,
			[]model.StopTime{
				{
					TripID: "t1", StopID: "s1", StopSequence: 1,
					Arrival: "065930", Departure: "070030",
					ArrivalHour: 6, DepartureHour: 7,
				},
			},
			false,
		},

		{
			"unknown trip",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
nope,s1,1,06:00:00,06:00:00`,
			nil,
			true,
		},

		{
			"unknown stop",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
t1,nope,1,06:00:00,06:00:00`,
			nil,
			true,
		},

		{
			"bad arrival_time",
			`
trip_id,stop_id,stop_sequence,arrival_time,departure_time
t1,s1,1,6am,06:00:00`,
			nil,
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			writer, err := s.GetWriter("test")
			require.NoError(t, err)

			err = ParseStopTimes(writer, bytes.NewBufferString(tc.content), trips, stops, nil)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, writer.Close())
		})
	}
}

func TestParseStopTimesSkipsChecksForMissingTables(t *testing.T) {
	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	content := `
trip_id,stop_id,stop_sequence,arrival_time,departure_time
anything,anywhere,1,06:00:00,06:00:00`

	err = ParseStopTimes(writer, bytes.NewBufferString(content), nil, nil, nil)
	assert.NoError(t, err)
}
