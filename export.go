package ghostbuses

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/schedule"
)

type longRow struct {
	Date           string `csv:"date"`
	RouteID        string `csv:"route_id"`
	TripCountRT    int    `csv:"trip_count_rt"`
	TripCountSched int    `csv:"trip_count_sched"`
	DayOfWeek      int    `csv:"dayofweek"`
	DayType        string `csv:"day_type"`
	FeedVersion    string `csv:"feed_version"`
}

type summaryRow struct {
	RouteID        string `csv:"route_id"`
	DayType        string `csv:"day_type"`
	TripCountRT    int    `csv:"trip_count_rt"`
	TripCountSched int    `csv:"trip_count_sched"`
	Ratio          string `csv:"ratio"`
}

// WriteLongCSV writes the combined long table with human-readable
// dates.
func WriteLongCSV(w io.Writer, long []model.ReconciledDay) error {
	rows := make([]longRow, len(long))
	for i, d := range long {
		rows[i] = longRow{
			Date:           schedule.FormatDate(d.Date),
			RouteID:        d.RouteID,
			TripCountRT:    d.TripCountRT,
			TripCountSched: d.TripCountSched,
			DayOfWeek:      d.DayOfWeek,
			DayType:        string(d.DayType),
			FeedVersion:    d.FeedVersion,
		}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing long table: %w", err)
	}
	return nil
}

// WriteSummaryCSV writes the route by day-type summary. An undefined
// ratio is written as an empty cell.
func WriteSummaryCSV(w io.Writer, summaries []model.RouteDayTypeSummary) error {
	rows := make([]summaryRow, len(summaries))
	for i, s := range summaries {
		ratio := ""
		if !math.IsNaN(s.Ratio) {
			ratio = strconv.FormatFloat(s.Ratio, 'f', -1, 64)
		}
		rows[i] = summaryRow{
			RouteID:        s.RouteID,
			DayType:        string(s.DayType),
			TripCountRT:    s.TripCountRT,
			TripCountSched: s.TripCountSched,
			Ratio:          ratio,
		}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing summary table: %w", err)
	}
	return nil
}
