package expand

import (
	"sort"
	"time"

	"github.com/chihacknight/chn-ghost-buses/model"
)

// Summarize reduces trip occurrences to the number of distinct trips
// per route per date. A trip appearing in several arrival-hour buckets
// still counts once. Output is sorted by (date, route).
func Summarize(occurrences []model.TripOccurrence) []model.RouteDailyCount {
	type key struct {
		date    int64
		routeID string
	}

	seen := map[key]map[string]bool{}
	for _, occ := range occurrences {
		k := key{occ.Date.Unix(), occ.RouteID}
		if seen[k] == nil {
			seen[k] = map[string]bool{}
		}
		seen[k][occ.TripID] = true
	}

	counts := []model.RouteDailyCount{}
	for k, trips := range seen {
		counts = append(counts, model.RouteDailyCount{
			Date:      time.Unix(k.date, 0).UTC(),
			RouteID:   k.routeID,
			TripCount: len(trips),
		})
	}

	sort.Slice(counts, func(i, j int) bool {
		if !counts[i].Date.Equal(counts[j].Date) {
			return counts[i].Date.Before(counts[j].Date)
		}
		return counts[i].RouteID < counts[j].RouteID
	})

	return counts
}
