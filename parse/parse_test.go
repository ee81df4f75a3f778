package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihacknight/chn-ghost-buses/storage"
)

func buildZip(t *testing.T, files map[string][]string) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func validFeedFiles() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_type",
			"22,22 Clark,3",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"wkday,1,1,1,1,1,0,0,20220501,20220531",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"wkday,20220530,2",
		},
		"trips.txt": {
			"trip_id,route_id,service_id",
			"t1,22,wkday",
			"t2,22,wkday",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,Clark & Lake,41.8857,-87.6309",
		},
		"stop_times.txt": {
			"trip_id,stop_id,stop_sequence,arrival_time,departure_time",
			"t1,s1,1,06:00:00,06:00:30",
			"t2,s1,1,24:30:00,24:31:00",
		},
		"shapes.txt": {
			"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
			"sh1,41.8857,-87.6309,1",
		},
	}
}

func TestParseValidFeed(t *testing.T) {
	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := ParseFeed(writer, buildZip(t, validFeedFiles()), nil)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	assert.Equal(t, "20220501", metadata.CalendarStartDate)
	assert.Equal(t, "20220531", metadata.CalendarEndDate)
	assert.Equal(t, "", metadata.MissingTables)

	reader, err := s.GetReader("test")
	require.NoError(t, err)

	routes, err := reader.Routes()
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "22", routes[0].ID)

	trips, err := reader.Trips()
	require.NoError(t, err)
	assert.Len(t, trips, 2)

	hours, err := reader.TripHours()
	require.NoError(t, err)
	require.Len(t, hours, 2)
	byTrip := map[string]int8{}
	for _, th := range hours {
		require.True(t, th.HasHour)
		byTrip[th.TripID] = th.Hour
	}
	assert.Equal(t, int8(6), byTrip["t1"])
	assert.Equal(t, int8(0), byTrip["t2"])
}

func TestParseMissingTables(t *testing.T) {
	files := validFeedFiles()
	delete(files, "shapes.txt")
	delete(files, "calendar_dates.txt")

	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := ParseFeed(writer, buildZip(t, files), nil)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	assert.Equal(t, "calendar_dates.txt,shapes.txt", metadata.MissingTables)
}

func TestParseBrokenTable(t *testing.T) {
	files := validFeedFiles()
	files["calendar.txt"] = []string{
		"service_id,start_date,end_date",
		"wkday,yesterday,tomorrow",
	}

	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	_, err = ParseFeed(writer, buildZip(t, files), nil)
	assert.Error(t, err)
}

func TestParseSubdirectoryArchive(t *testing.T) {
	files := map[string][]string{}
	for name, content := range validFeedFiles() {
		files["google_transit/"+name] = content
	}

	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	metadata, err := ParseFeed(writer, buildZip(t, files), nil)
	require.NoError(t, err)
	assert.Equal(t, "", metadata.MissingTables)
}

func TestParseNotAZip(t *testing.T) {
	s := storage.NewMemoryStorage()
	writer, err := s.GetWriter("test")
	require.NoError(t, err)

	_, err = ParseFeed(writer, []byte("certainly not a zip archive"), nil)
	assert.Error(t, err)
}
