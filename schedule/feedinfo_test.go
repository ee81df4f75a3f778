package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewFeedInfo(t *testing.T) {
	fi, err := NewFeedInfo("20220507", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	require.NoError(t, err)
	assert.Equal(t, "20220507", fi.Version)

	_, err = NewFeedInfo("20220507", day("2022-06-03"), day("2022-05-20"), SourceTransitFeeds)
	assert.Error(t, err)

	_, err = NewFeedInfo("", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	assert.Error(t, err)
}

func TestFeedInfoKey(t *testing.T) {
	fi, err := NewFeedInfo("20220507", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	require.NoError(t, err)
	assert.Equal(t, "v_20220507_fs_2022-05-20_fe_2022-06-03", fi.Key())

	cta, err := NewFeedInfo("20231216", day("2023-12-16"), day("2023-12-29"), SourceBucket)
	require.NoError(t, err)
	assert.Equal(t, "v_20231216_fs_2023-12-16_fe_2023-12-29_cta", cta.Key())
}

func TestFeedInfoContains(t *testing.T) {
	fi, err := NewFeedInfo("v", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	require.NoError(t, err)

	assert.True(t, fi.Contains(day("2022-05-20")))
	assert.True(t, fi.Contains(day("2022-06-03")))
	assert.True(t, fi.Contains(day("2022-05-28")))
	assert.False(t, fi.Contains(day("2022-05-19")))
	assert.False(t, fi.Contains(day("2022-06-04")))
}

func TestFeedInfoClip(t *testing.T) {
	fi, err := NewFeedInfo("v", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	require.NoError(t, err)

	// Fully inside the range: unchanged.
	clipped, ok := fi.Clip(day("2022-05-01"), day("2022-06-30"))
	require.True(t, ok)
	assert.Equal(t, fi, clipped)

	// Partial overlap on both ends.
	clipped, ok = fi.Clip(day("2022-05-25"), day("2022-05-28"))
	require.True(t, ok)
	assert.Equal(t, day("2022-05-25"), clipped.StartDate)
	assert.Equal(t, day("2022-05-28"), clipped.EndDate)

	// Disjoint ranges.
	_, ok = fi.Clip(day("2022-07-01"), day("2022-07-31"))
	assert.False(t, ok)
	_, ok = fi.Clip(day("2022-04-01"), day("2022-04-30"))
	assert.False(t, ok)
}

func TestFilterRange(t *testing.T) {
	v1, err := NewFeedInfo("a", day("2022-05-20"), day("2022-06-03"), SourceTransitFeeds)
	require.NoError(t, err)
	v2, err := NewFeedInfo("b", day("2022-06-04"), day("2022-06-17"), SourceTransitFeeds)
	require.NoError(t, err)
	v3, err := NewFeedInfo("c", day("2022-06-18"), day("2022-07-01"), SourceTransitFeeds)
	require.NoError(t, err)

	filtered := FilterRange([]FeedInfo{v1, v2, v3}, day("2022-06-01"), day("2022-06-20"))

	require.Len(t, filtered, 3)
	assert.Equal(t, day("2022-06-01"), filtered[0].StartDate)
	assert.Equal(t, day("2022-06-03"), filtered[0].EndDate)
	assert.Equal(t, v2, filtered[1])
	assert.Equal(t, day("2022-06-18"), filtered[2].StartDate)
	assert.Equal(t, day("2022-06-20"), filtered[2].EndDate)

	// A version wholly outside the range is dropped.
	filtered = FilterRange([]FeedInfo{v1}, day("2022-07-01"), day("2022-07-31"))
	assert.Empty(t, filtered)
}
