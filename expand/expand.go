// Package expand turns one parsed schedule feed into the concrete set
// of trips scheduled to run on each calendar date of the feed's
// validity window.
package expand

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/schedule"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

const calendarLayout = "20060102"

// Expander resolves service calendars against a date axis and joins
// the serviced (date, service) pairs through trips to their arrival
// hours.
type Expander struct {
	Logger *slog.Logger
}

// Expand computes every trip occurrence for the feed within the
// version's validity window. The date axis spans the earliest
// start_date to the latest end_date across calendar rows, widened by
// any exception dates falling outside it; the result is then
// restricted to [fi.StartDate, fi.EndDate], the window during which
// this version was the schedule in effect.
//
// A feed with no calendar data at all yields an empty result, not an
// error.
func (e *Expander) Expand(reader storage.FeedReader, fi schedule.FeedInfo) ([]model.TripOccurrence, error) {
	cals, err := reader.Calendars()
	if err != nil {
		return nil, fmt.Errorf("reading calendars: %w", err)
	}
	caldates, err := reader.CalendarDates()
	if err != nil {
		return nil, fmt.Errorf("reading calendar dates: %w", err)
	}

	if len(cals) == 0 && len(caldates) == 0 {
		e.Logger.Warn(
			"feed has no calendar data",
			slog.String("version", fi.Version),
		)
		return []model.TripOccurrence{}, nil
	}

	dates, err := dateAxis(cals, caldates, fi)
	if err != nil {
		return nil, err
	}

	trips, err := reader.Trips()
	if err != nil {
		return nil, fmt.Errorf("reading trips: %w", err)
	}
	tripsByService := map[string][]*model.Trip{}
	for _, t := range trips {
		tripsByService[t.ServiceID] = append(tripsByService[t.ServiceID], t)
	}

	hours, err := reader.TripHours()
	if err != nil {
		return nil, fmt.Errorf("reading trip hours: %w", err)
	}
	hoursByTrip := map[string][]*model.TripHour{}
	for _, th := range hours {
		hoursByTrip[th.TripID] = append(hoursByTrip[th.TripID], th)
	}

	occurrences := []model.TripOccurrence{}
	for _, date := range dates {
		services, err := reader.ActiveServices(date.Format(calendarLayout))
		if err != nil {
			return nil, fmt.Errorf("resolving services for %s: %w", schedule.FormatDate(date), err)
		}

		for _, serviceID := range services {
			for _, trip := range tripsByService[serviceID] {
				for _, th := range hoursByTrip[trip.ID] {
					occurrences = append(occurrences, model.TripOccurrence{
						Date:    date,
						RouteID: th.RouteID,
						TripID:  th.TripID,
						Hour:    th.Hour,
						HasHour: th.HasHour,
					})
				}
			}
		}
	}

	return occurrences, nil
}

// dateAxis builds the ordered list of dates to resolve: the span of
// the weekly calendars, any exception dates outside that span, all
// clipped to the feed version's own validity window.
func dateAxis(
	cals []*model.Calendar,
	caldates []*model.CalendarDate,
	fi schedule.FeedInfo,
) ([]time.Time, error) {

	var min, max string
	for _, c := range cals {
		if min == "" || c.StartDate < min {
			min = c.StartDate
		}
		if max == "" || c.EndDate > max {
			max = c.EndDate
		}
	}

	inAxis := func(d string) bool {
		return min != "" && d >= min && d <= max
	}

	dates := map[time.Time]bool{}

	if min != "" {
		start, err := time.Parse(calendarLayout, min)
		if err != nil {
			return nil, fmt.Errorf("calendar start date '%s': %w", min, err)
		}
		end, err := time.Parse(calendarLayout, max)
		if err != nil {
			return nil, fmt.Errorf("calendar end date '%s': %w", max, err)
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates[d] = true
		}
	}

	// Exceptions can add service on dates no weekly pattern spans.
	for _, cd := range caldates {
		if inAxis(cd.Date) {
			continue
		}
		d, err := time.Parse(calendarLayout, cd.Date)
		if err != nil {
			return nil, fmt.Errorf("exception date '%s': %w", cd.Date, err)
		}
		dates[d] = true
	}

	axis := []time.Time{}
	for d := range dates {
		if !fi.Contains(d) {
			continue
		}
		axis = append(axis, d)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	return axis, nil
}
