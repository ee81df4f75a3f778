package ghostbuses

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihacknight/chn-ghost-buses/agg"
	"github.com/chihacknight/chn-ghost-buses/cache"
	"github.com/chihacknight/chn-ghost-buses/compare"
	"github.com/chihacknight/chn-ghost-buses/config"
	"github.com/chihacknight/chn-ghost-buses/downloader"
	"github.com/chihacknight/chn-ghost-buses/expand"
	"github.com/chihacknight/chn-ghost-buses/rt"
	"github.com/chihacknight/chn-ghost-buses/schedule"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

type fakeDownloader struct {
	responses map[string][]byte
}

func (d *fakeDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options downloader.GetOptions,
) ([]byte, error) {
	body, found := d.responses[url]
	if !found {
		return nil, fmt.Errorf("%s: %w", url, downloader.ErrNotFound)
	}
	return body, nil
}

const (
	catalogURL = "https://transitfeeds.com/p/chicago-transit-authority/165"
	bucketURL  = "https://chn-ghost-buses-public.s3.us-east-2.amazonaws.com"
	listURL    = bucketURL + "/?list-type=2&prefix=cta_schedule_zipfiles_raw%2F"
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

// A feed with one route and ten weekday trips through May and June
// 2022.
func fixtureArchive(t *testing.T) []byte {
	trips := []string{"trip_id,route_id,service_id"}
	stopTimes := []string{"trip_id,stop_id,stop_sequence,arrival_time,departure_time"}
	for i := 1; i <= 10; i++ {
		trips = append(trips, fmt.Sprintf("t%d,22,wkday", i))
		stopTimes = append(stopTimes, fmt.Sprintf("t%d,s1,1,0%d:00:00,0%d:00:30", i, i%10, i%10))
	}

	return buildZip(t, map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_type",
			"22,22 Clark,3",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"wkday,1,1,1,1,1,0,0,20220501,20220630",
		},
		"trips.txt": trips,
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon",
			"s1,Clark & Lake,41.8857,-87.6309",
		},
		"stop_times.txt": stopTimes,
	})
}

func pingDay(day string, trips int) []byte {
	out := "data_date,rt,vid,tatripid,tablockid\n"
	for i := 0; i < trips; i++ {
		out += fmt.Sprintf("%s,22,v%d,p%d,b1\n", day, i, i)
	}
	return []byte(out)
}

func emptyBucketListing() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<ListBucketResult><IsTruncated>false</IsTruncated></ListBucketResult>`)
}

func pingURL(day string) string {
	return bucketURL + "/bus_full_day_data_v2/" + day + ".csv"
}

func testPipeline(t *testing.T, responses map[string][]byte, ignoreCache bool) *Pipeline {
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dl := &fakeDownloader{responses: responses}

	indexer, err := schedule.NewIndexer(cfg, dl, logger)
	require.NoError(t, err)
	indexer.Now = func() time.Time {
		return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	}

	reconciler, err := compare.NewReconciler(cfg.Holidays)
	require.NoError(t, err)

	resultCache, err := cache.New(cfg.CacheDir, ignoreCache, logger)
	require.NoError(t, err)

	return &Pipeline{
		cfg:        cfg,
		storage:    storage.NewMemoryStorage(),
		indexer:    indexer,
		expander:   &expand.Expander{Logger: logger},
		reconciler: reconciler,
		days: &rt.DayReader{
			Bucket:     cfg.Bucket,
			Region:     cfg.BucketRegion,
			Prefix:     cfg.PingPrefix,
			Downloader: dl,
			Logger:     logger,
		},
		cache:  resultCache,
		logger: logger,
	}
}

func TestPipelineCompare(t *testing.T) {
	responses := map[string][]byte{
		// One archival schedule version, in effect 2022-05-19
		// through 2022-06-09.
		catalogURL + "?p=1": []byte(
			"<html><body><table><tbody>" +
				"<tr><td>10 June 2022</td></tr>" +
				"<tr><td>7 May 2022</td></tr>" +
				"</tbody></table></body></html>",
		),
		listURL: emptyBucketListing(),

		catalogURL + "/20220507/download": fixtureArchive(t),

		// Realtime data for a Monday and the following Tuesday; the
		// Wednesday file is missing.
		pingURL("2022-05-23"): pingDay("2022-05-23", 7),
		pingURL("2022-05-24"): pingDay("2022-05-24", 8),
	}

	p := testPipeline(t, responses, false)

	long, summary, err := p.Compare(
		context.Background(),
		day(t, "2022-05-23"), day(t, "2022-05-25"),
		agg.Daily,
	)
	require.NoError(t, err)

	require.Len(t, long, 2)
	assert.Equal(t, day(t, "2022-05-23"), long[0].Date)
	assert.Equal(t, "22", long[0].RouteID)
	assert.Equal(t, 7, long[0].TripCountRT)
	assert.Equal(t, 10, long[0].TripCountSched)
	assert.Equal(t, 0, long[0].DayOfWeek)
	assert.Equal(t, "wk", string(long[0].DayType))
	assert.Equal(t, "20220507", long[0].FeedVersion)

	assert.Equal(t, day(t, "2022-05-24"), long[1].Date)
	assert.Equal(t, 8, long[1].TripCountRT)

	require.Len(t, summary, 1)
	assert.Equal(t, "22", summary[0].RouteID)
	assert.Equal(t, 15, summary[0].TripCountRT)
	assert.Equal(t, 20, summary[0].TripCountSched)
	assert.InDelta(t, 0.75, summary[0].Ratio, 1e-9)
}

func TestPipelineCompareOutOfRange(t *testing.T) {
	responses := map[string][]byte{
		catalogURL + "?p=1": []byte(
			"<html><body><table><tbody>" +
				"<tr><td>10 June 2022</td></tr>" +
				"<tr><td>7 May 2022</td></tr>" +
				"</tbody></table></body></html>",
		),
		listURL: emptyBucketListing(),
	}

	p := testPipeline(t, responses, false)

	// The only version ends 2022-06-09; a later range yields nothing
	// without fetching any archive.
	long, summary, err := p.Compare(
		context.Background(),
		day(t, "2023-01-01"), day(t, "2023-01-31"),
		agg.Daily,
	)
	require.NoError(t, err)
	assert.Empty(t, long)
	assert.Empty(t, summary)
}

func TestPipelineCompareServedFromCache(t *testing.T) {
	responses := map[string][]byte{
		catalogURL + "?p=1": []byte(
			"<html><body><table><tbody>" +
				"<tr><td>10 June 2022</td></tr>" +
				"<tr><td>7 May 2022</td></tr>" +
				"</tbody></table></body></html>",
		),
		listURL:                          emptyBucketListing(),
		catalogURL + "/20220507/download": fixtureArchive(t),
		pingURL("2022-05-23"):            pingDay("2022-05-23", 7),
	}

	p := testPipeline(t, responses, false)

	first, _, err := p.Compare(
		context.Background(),
		day(t, "2022-05-23"), day(t, "2022-05-23"),
		agg.Daily,
	)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Drop the upstream data; the second run must be served from the
	// result cache.
	p.days.Downloader = &fakeDownloader{responses: map[string][]byte{}}

	second, _, err := p.Compare(
		context.Background(),
		day(t, "2022-05-23"), day(t, "2022-05-23"),
		agg.Daily,
	)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func day(t *testing.T, s string) time.Time {
	d, err := schedule.ParseDate(s)
	require.NoError(t, err)
	return d
}
