// Package rt summarizes raw realtime vehicle pings into daily
// observed-trip counts per route.
package rt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/chihacknight/chn-ghost-buses/downloader"
	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/schedule"
)

// Ping is one scraped vehicle position record from a full-day file.
// Only the identity columns matter here; position and timestamp
// columns in the raw files are ignored.
type Ping struct {
	DataDate  string `csv:"data_date"`
	Route     string `csv:"rt"`
	VehicleID string `csv:"vid"`
	TripID    string `csv:"tatripid"`
	BlockID   string `csv:"tablockid"`
}

// DayReader fetches and summarizes per-day ping files from the public
// bucket. Day files are immutable once written, so they cache locally
// forever.
type DayReader struct {
	Bucket     string
	Region     string
	Prefix     string
	Downloader downloader.Downloader
	Logger     *slog.Logger
}

func (r *DayReader) dayURL(date time.Time) string {
	return fmt.Sprintf(
		"https://%s.s3.%s.amazonaws.com/%s%s.csv",
		r.Bucket, r.Region, r.Prefix, schedule.FormatDate(date),
	)
}

// ReadDay returns the raw pings for one date. A missing day file
// returns downloader.ErrNotFound.
func (r *DayReader) ReadDay(ctx context.Context, date time.Time) ([]*Ping, error) {
	body, err := r.Downloader.Get(ctx, r.dayURL(date), nil, downloader.GetOptions{
		Timeout:  2 * time.Minute,
		CacheKey: r.Prefix + schedule.FormatDate(date) + ".csv",
	})
	if err != nil {
		return nil, err
	}

	pings := []*Ping{}
	if err := gocsv.UnmarshalBytes(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), &pings); err != nil {
		return nil, fmt.Errorf("parsing pings for %s: %w", schedule.FormatDate(date), err)
	}

	return pings, nil
}

// SummarizeDay groups one day's pings by (date, route) and counts the
// distinct vehicle, trip and block identifiers seen.
func SummarizeDay(pings []*Ping) []model.PingDailySummary {
	type key struct {
		date    string
		routeID string
	}
	type sets struct {
		vehicles map[string]bool
		trips    map[string]bool
		blocks   map[string]bool
	}

	grouped := map[key]*sets{}
	for _, p := range pings {
		k := key{p.DataDate, p.Route}
		s := grouped[k]
		if s == nil {
			s = &sets{
				vehicles: map[string]bool{},
				trips:    map[string]bool{},
				blocks:   map[string]bool{},
			}
			grouped[k] = s
		}
		s.vehicles[p.VehicleID] = true
		s.trips[p.TripID] = true
		s.blocks[p.BlockID] = true
	}

	summaries := []model.PingDailySummary{}
	for k, s := range grouped {
		date, err := schedule.ParseDate(k.date)
		if err != nil {
			// Rows with a mangled data_date can't be joined to
			// anything downstream.
			continue
		}
		summaries = append(summaries, model.PingDailySummary{
			Date:         date,
			RouteID:      k.routeID,
			VehicleCount: len(s.vehicles),
			TripCount:    len(s.trips),
			BlockCount:   len(s.blocks),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].Date.Equal(summaries[j].Date) {
			return summaries[i].Date.Before(summaries[j].Date)
		}
		return summaries[i].RouteID < summaries[j].RouteID
	})

	return summaries
}

// SummarizeRange loads and summarizes every day file in [start, end].
// A day with no file contributes nothing; the date is simply absent
// from the result, which downstream joins treat as "no realtime data"
// rather than zero trips.
func (r *DayReader) SummarizeRange(ctx context.Context, start, end time.Time) ([]model.PingDailySummary, error) {
	summaries := []model.PingDailySummary{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		pings, err := r.ReadDay(ctx, d)
		if errors.Is(err, downloader.ErrNotFound) {
			r.Logger.Warn(
				"no realtime data for date",
				slog.String("date", schedule.FormatDate(d)),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading pings for %s: %w", schedule.FormatDate(d), err)
		}
		summaries = append(summaries, SummarizeDay(pings)...)
	}
	return summaries, nil
}

// DailyCounts projects ping summaries onto the route-daily-count shape
// the comparison consumes. Vehicle and block counts are diagnostic
// only.
func DailyCounts(summaries []model.PingDailySummary) []model.RouteDailyCount {
	counts := make([]model.RouteDailyCount, len(summaries))
	for i, s := range summaries {
		counts[i] = model.RouteDailyCount{
			Date:      s.Date,
			RouteID:   s.RouteID,
			TripCount: s.TripCount,
		}
	}
	return counts
}
