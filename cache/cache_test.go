package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihacknight/chn-ghost-buses/model"
)

func testCache(t *testing.T, ignoreCache bool) *Cache {
	c, err := New(t.TempDir(), ignoreCache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func sampleRows() []model.ReconciledDay {
	return []model.ReconciledDay{
		{
			Date:           time.Date(2022, 5, 20, 0, 0, 0, 0, time.UTC),
			RouteID:        "22",
			TripCountRT:    7,
			TripCountSched: 10,
			DayOfWeek:      4,
			DayType:        model.DayTypeWeekday,
			FeedVersion:    "20220507",
		},
		{
			Date:           time.Date(2022, 5, 21, 0, 0, 0, 0, time.UTC),
			RouteID:        "22",
			TripCountRT:    4,
			TripCountSched: 6,
			DayOfWeek:      5,
			DayType:        model.DayTypeSaturday,
			FeedVersion:    "20220507",
		},
	}
}

func TestGetOrComputeRoundTrip(t *testing.T) {
	for _, ext := range []string{".csv", ".jsonl"} {
		t.Run(ext, func(t *testing.T) {
			c := testCache(t, false)
			key := "v_20220507_fs_2022-05-20_fe_2022-06-03" + ext

			rows, err := c.GetOrCompute("comparisons", key, func() ([]model.ReconciledDay, error) {
				return sampleRows(), nil
			})
			require.NoError(t, err)
			assert.Equal(t, sampleRows(), rows)

			// Second read comes from disk and must match.
			cached, err := c.GetOrCompute("comparisons", key, func() ([]model.ReconciledDay, error) {
				return nil, fmt.Errorf("should not be called")
			})
			require.NoError(t, err)
			assert.Equal(t, sampleRows(), cached)
		})
	}
}

func TestGetOrComputeIdempotent(t *testing.T) {
	c := testCache(t, false)

	calls := 0
	fn := func() ([]model.ReconciledDay, error) {
		calls++
		if calls > 1 {
			return nil, fmt.Errorf("computed twice")
		}
		return sampleRows(), nil
	}

	_, err := c.GetOrCompute("comparisons", "v.csv", fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute("comparisons", "v.csv", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeIgnoreCache(t *testing.T) {
	c := testCache(t, true)

	calls := 0
	fn := func() ([]model.ReconciledDay, error) {
		calls++
		return sampleRows(), nil
	}

	_, err := c.GetOrCompute("comparisons", "v.csv", fn)
	require.NoError(t, err)
	_, err = c.GetOrCompute("comparisons", "v.csv", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeEmptyResultIsServed(t *testing.T) {
	for _, ext := range []string{".csv", ".jsonl"} {
		t.Run(ext, func(t *testing.T) {
			c := testCache(t, false)

			calls := 0
			fn := func() ([]model.ReconciledDay, error) {
				calls++
				return []model.ReconciledDay{}, nil
			}

			rows, err := c.GetOrCompute("comparisons", "empty"+ext, fn)
			require.NoError(t, err)
			assert.Empty(t, rows)

			rows, err = c.GetOrCompute("comparisons", "empty"+ext, fn)
			require.NoError(t, err)
			assert.Empty(t, rows)

			// The empty artifact is persisted, not recomputed.
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGetOrComputeBadExtension(t *testing.T) {
	c := testCache(t, false)
	_, err := c.GetOrCompute("comparisons", "v.parquet", func() ([]model.ReconciledDay, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestNonIntegerDateBecomesNull(t *testing.T) {
	c := testCache(t, false)

	path := filepath.Join(c.Dir, "comparisons", "v.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := "date,route_id,trip_count_rt,trip_count_sched,dayofweek,day_type,feed_version\n" +
		"2022-05-20,22,7,10,4,wk,20220507\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := c.GetOrCompute("comparisons", "v.csv", func() ([]model.ReconciledDay, error) {
		return nil, fmt.Errorf("should be served from disk")
	})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].Date.IsZero())
	assert.Equal(t, "22", rows[0].RouteID)
	assert.Equal(t, 7, rows[0].TripCountRT)
}

func TestComputeErrorNotPersisted(t *testing.T) {
	c := testCache(t, false)

	_, err := c.GetOrCompute("comparisons", "v.csv", func() ([]model.ReconciledDay, error) {
		return nil, fmt.Errorf("upstream failure")
	})
	assert.Error(t, err)

	// A later call must recompute.
	rows, err := c.GetOrCompute("comparisons", "v.csv", func() ([]model.ReconciledDay, error) {
		return sampleRows(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}
