package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

func TestCalendar(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		expected []model.Calendar
		minDate  string
		maxDate  string
		err      bool
	}{
		{
			"minimal",
			`
service_id,start_date,end_date
s,20220501,20220531`,
			[]model.Calendar{
				{
					ServiceID: "s",
					Weekday:   0,
					StartDate: "20220501",
					EndDate:   "20220531",
				},
			},
			"20220501",
			"20220531",
			false,
		},

		{
			"all days",
			`
service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
s,1,1,1,1,1,1,1,20220501,20220531`,
			[]model.Calendar{
				{
					ServiceID: "s",
					Weekday:   127,
					StartDate: "20220501",
					EndDate:   "20220531",
				},
			},
			"20220501",
			"20220531",
			false,
		},

		{
			"weekdays only",
			`
service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
s,1,1,1,1,1,0,0,20220501,20220531`,
			[]model.Calendar{
				{
					ServiceID: "s",
					Weekday:   0b0111110,
					StartDate: "20220501",
					EndDate:   "20220531",
				},
			},
			"20220501",
			"20220531",
			false,
		},

		{
			"multiple services with differing ranges",
			`
service_id,saturday,start_date,end_date
a,1,20220501,20220531
b,1,20220415,20220515`,
			[]model.Calendar{
				{
					ServiceID: "a",
					Weekday:   1 << 6,
					StartDate: "20220501",
					EndDate:   "20220531",
				},
				{
					ServiceID: "b",
					Weekday:   1 << 6,
					StartDate: "20220415",
					EndDate:   "20220515",
				},
			},
			"20220415",
			"20220531",
			false,
		},

		{
			"repeated service_id",
			`
service_id,start_date,end_date
s,20220501,20220531
s,20220601,20220630`,
			nil, "", "", true,
		},

		{
			"bad start_date",
			`
service_id,start_date,end_date
s,2022-05-01,20220531`,
			nil, "", "", true,
		},

		{
			"bad weekday flag",
			`
service_id,monday,start_date,end_date
s,2,20220501,20220531`,
			nil, "", "", true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			writer, err := s.GetWriter("test")
			require.NoError(t, err)

			services, minDate, maxDate, err := ParseCalendar(
				writer, bytes.NewBufferString(tc.content),
			)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, writer.Close())

			assert.Equal(t, tc.minDate, minDate)
			assert.Equal(t, tc.maxDate, maxDate)
			assert.Equal(t, len(tc.expected), len(services))
			for _, c := range tc.expected {
				assert.True(t, services[c.ServiceID])
			}

			reader, err := s.GetReader("test")
			require.NoError(t, err)
			cals, err := reader.Calendars()
			require.NoError(t, err)

			byService := map[string]model.Calendar{}
			for _, c := range cals {
				byService[c.ServiceID] = *c
			}
			for _, expected := range tc.expected {
				assert.Equal(t, expected, byService[expected.ServiceID])
			}
		})
	}
}
