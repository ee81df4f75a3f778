// Package agg resamples route daily summaries to coarser time
// frequencies.
package agg

import (
	"fmt"
	"sort"
	"time"

	"github.com/chihacknight/chn-ghost-buses/model"
)

// Frequency is a resampling granularity for route daily counts.
type Frequency string

const (
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
	Yearly  Frequency = "Y"
)

// ParseFrequency accepts the single-letter frequency tokens, case
// insensitively.
func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "D", "d":
		return Daily, nil
	case "W", "w":
		return Weekly, nil
	case "M", "m":
		return Monthly, nil
	case "Y", "y":
		return Yearly, nil
	}
	return "", fmt.Errorf("unknown frequency '%s' (want D, W, M or Y)", s)
}

// Bucket truncates a date down to the start of its bucket. Weekly
// buckets start on Monday.
func (f Frequency) Bucket(t time.Time) time.Time {
	switch f {
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Weekly:
		days := (int(t.Weekday()) + 6) % 7
		t = t.AddDate(0, 0, -days)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// ByFrequency sums trip counts per (bucket, route). Output rows carry
// the bucket start as their date, ordered by (bucket, route).
func ByFrequency(counts []model.RouteDailyCount, freq Frequency) []model.RouteDailyCount {
	type key struct {
		bucket  int64
		routeID string
	}

	sums := map[key]int{}
	for _, c := range counts {
		k := key{freq.Bucket(c.Date).Unix(), c.RouteID}
		sums[k] += c.TripCount
	}

	out := []model.RouteDailyCount{}
	for k, total := range sums {
		out = append(out, model.RouteDailyCount{
			Date:      time.Unix(k.bucket, 0).UTC(),
			RouteID:   k.routeID,
			TripCount: total,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].RouteID < out[j].RouteID
	})

	return out
}
