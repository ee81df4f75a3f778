// Package compare reconciles scheduled against observed trip counts
// per route and day.
package compare

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chihacknight/chn-ghost-buses/agg"
	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/schedule"
)

// Reconciler inner-joins realtime and scheduled daily counts and
// labels each row with its day type. A date on the holiday list is
// "hol" no matter what weekday it falls on.
type Reconciler struct {
	holidays map[time.Time]bool
}

func NewReconciler(holidays []string) (*Reconciler, error) {
	set := map[time.Time]bool{}
	for _, h := range holidays {
		d, err := schedule.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("parsing holiday '%s': %w", h, err)
		}
		set[d] = true
	}
	return &Reconciler{holidays: set}, nil
}

// DayOfWeek numbers days 0=Monday through 6=Sunday.
func DayOfWeek(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

func (r *Reconciler) dayType(d time.Time) model.DayType {
	if r.holidays[d] {
		return model.DayTypeHoliday
	}
	switch DayOfWeek(d) {
	case 5:
		return model.DayTypeSaturday
	case 6:
		return model.DayTypeSunday
	}
	return model.DayTypeWeekday
}

// Reconcile aggregates both sides to the requested frequency, joins
// them on (date, route), and tags rows with the schedule version. A
// (date, route) present on only one side is dropped: a day with no
// scheduled service, or no observed data, has nothing to compare
// against.
func (r *Reconciler) Reconcile(
	rtCounts, schedCounts []model.RouteDailyCount,
	freq agg.Frequency,
	feedVersion string,
) []model.ReconciledDay {

	rtAgg := agg.ByFrequency(rtCounts, freq)
	schedAgg := agg.ByFrequency(schedCounts, freq)

	type key struct {
		date    int64
		routeID string
	}
	schedByKey := map[key]int{}
	for _, c := range schedAgg {
		schedByKey[key{c.Date.Unix(), c.RouteID}] = c.TripCount
	}

	long := []model.ReconciledDay{}
	for _, c := range rtAgg {
		sched, found := schedByKey[key{c.Date.Unix(), c.RouteID}]
		if !found {
			continue
		}
		long = append(long, model.ReconciledDay{
			Date:           c.Date,
			RouteID:        c.RouteID,
			TripCountRT:    c.TripCount,
			TripCountSched: sched,
			DayOfWeek:      DayOfWeek(c.Date),
			DayType:        r.dayType(c.Date),
			FeedVersion:    feedVersion,
		})
	}

	return long
}

// Combine concatenates per-version long tables, keeping only rows
// within [start, end].
func Combine(versions [][]model.ReconciledDay, start, end time.Time) []model.ReconciledDay {
	combined := []model.ReconciledDay{}
	for _, long := range versions {
		for _, row := range long {
			if row.Date.Before(start) || row.Date.After(end) {
				continue
			}
			combined = append(combined, row)
		}
	}
	return combined
}

// Summarize groups a combined long table by (route, day type), summing
// both trip counts. The ratio is NaN when nothing was scheduled in a
// bucket; downstream consumers tolerate it rather than crash.
func Summarize(long []model.ReconciledDay) []model.RouteDayTypeSummary {
	type key struct {
		routeID string
		dayType model.DayType
	}
	type totals struct {
		rt    int
		sched int
	}

	grouped := map[key]*totals{}
	for _, row := range long {
		k := key{row.RouteID, row.DayType}
		t := grouped[k]
		if t == nil {
			t = &totals{}
			grouped[k] = t
		}
		t.rt += row.TripCountRT
		t.sched += row.TripCountSched
	}

	summaries := []model.RouteDayTypeSummary{}
	for k, t := range grouped {
		ratio := math.NaN()
		if t.sched != 0 {
			ratio = float64(t.rt) / float64(t.sched)
		}
		summaries = append(summaries, model.RouteDayTypeSummary{
			RouteID:        k.routeID,
			DayType:        k.dayType,
			TripCountRT:    t.rt,
			TripCountSched: t.sched,
			Ratio:          ratio,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].RouteID != summaries[j].RouteID {
			return summaries[i].RouteID < summaries[j].RouteID
		}
		return summaries[i].DayType < summaries[j].DayType
	})

	return summaries
}
