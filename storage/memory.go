package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/chihacknight/chn-ghost-buses/model"
)

// In memory implementation of Storage below

type MemoryStorage struct {
	Feeds    map[string]*MemoryStorageFeed
	Metadata map[string]*FeedMetadata
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Feeds:    map[string]*MemoryStorageFeed{},
		Metadata: map[string]*FeedMetadata{},
	}
}

func (s *MemoryStorage) ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error) {
	feeds := []*FeedMetadata{}
	for _, metadata := range s.Metadata {
		if filter.Version != "" && metadata.Version != filter.Version {
			continue
		}
		if filter.Source != "" && metadata.Source != filter.Source {
			continue
		}
		feeds = append(feeds, metadata)
	}
	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].Version < feeds[j].Version
	})
	return feeds, nil
}

func (s *MemoryStorage) WriteFeedMetadata(metadata *FeedMetadata) error {
	s.Metadata[metadata.Version] = metadata
	return nil
}

func (s *MemoryStorage) GetReader(version string) (FeedReader, error) {
	f, ok := s.Feeds[version]
	if !ok {
		return nil, fmt.Errorf("feed %s does not exist", version)
	}
	return f, nil
}

func (s *MemoryStorage) GetWriter(version string) (FeedWriter, error) {
	f := &MemoryStorageFeed{
		routes:          map[string]*model.Route{},
		stops:           map[string]*model.Stop{},
		trips:           map[string]*model.Trip{},
		calendar:        map[string]*model.Calendar{},
		calendarDate:    map[string][]*model.CalendarDate{},
		stopTimesByTrip: map[string][]*model.StopTime{},
	}

	s.Feeds[version] = f

	return f, nil
}

type MemoryStorageFeed struct {
	routes          map[string]*model.Route
	stops           map[string]*model.Stop
	trips           map[string]*model.Trip
	calendar        map[string]*model.Calendar
	calendarDate    map[string][]*model.CalendarDate
	stopTimesByTrip map[string][]*model.StopTime
	shapePoints     []*model.ShapePoint
}

func (f *MemoryStorageFeed) WriteRoute(route *model.Route) error {
	f.routes[route.ID] = route
	return nil
}

func (f *MemoryStorageFeed) WriteStop(stop *model.Stop) error {
	f.stops[stop.ID] = stop
	return nil
}

func (f *MemoryStorageFeed) BeginTrips() error {
	return nil
}

func (f *MemoryStorageFeed) WriteTrip(trip *model.Trip) error {
	f.trips[trip.ID] = trip
	return nil
}

func (f *MemoryStorageFeed) EndTrips() error {
	return nil
}

func (f *MemoryStorageFeed) BeginStopTimes() error {
	return nil
}

func (f *MemoryStorageFeed) WriteStopTime(stopTime *model.StopTime) error {
	f.stopTimesByTrip[stopTime.TripID] = append(f.stopTimesByTrip[stopTime.TripID], stopTime)
	return nil
}

func (f *MemoryStorageFeed) EndStopTimes() error {
	return nil
}

func (f *MemoryStorageFeed) WriteCalendar(cal *model.Calendar) error {
	f.calendar[cal.ServiceID] = cal
	return nil
}

func (f *MemoryStorageFeed) WriteCalendarDate(cd *model.CalendarDate) error {
	f.calendarDate[cd.ServiceID] = append(f.calendarDate[cd.ServiceID], cd)
	return nil
}

func (f *MemoryStorageFeed) WriteShapePoint(pt *model.ShapePoint) error {
	f.shapePoints = append(f.shapePoints, pt)
	return nil
}

func (f *MemoryStorageFeed) Close() error {
	return nil
}

func (f *MemoryStorageFeed) Routes() ([]*model.Route, error) {
	routes := []*model.Route{}
	for _, v := range f.routes {
		routes = append(routes, v)
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].ID < routes[j].ID
	})
	return routes, nil
}

func (f *MemoryStorageFeed) Trips() ([]*model.Trip, error) {
	trips := []*model.Trip{}
	for _, v := range f.trips {
		trips = append(trips, v)
	}
	sort.Slice(trips, func(i, j int) bool {
		return trips[i].ID < trips[j].ID
	})
	return trips, nil
}

func (f *MemoryStorageFeed) Calendars() ([]*model.Calendar, error) {
	cals := []*model.Calendar{}
	for _, v := range f.calendar {
		cals = append(cals, v)
	}
	sort.Slice(cals, func(i, j int) bool {
		return cals[i].ServiceID < cals[j].ServiceID
	})
	return cals, nil
}

func (f *MemoryStorageFeed) CalendarDates() ([]*model.CalendarDate, error) {
	cds := []*model.CalendarDate{}
	for _, v := range f.calendarDate {
		cds = append(cds, v...)
	}
	sort.Slice(cds, func(i, j int) bool {
		if cds[i].ServiceID != cds[j].ServiceID {
			return cds[i].ServiceID < cds[j].ServiceID
		}
		return cds[i].Date < cds[j].Date
	})
	return cds, nil
}

func (f *MemoryStorageFeed) ActiveServices(date string) ([]string, error) {
	parsedDate, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}

	services := map[string]bool{}

	for _, cal := range f.calendar {
		if cal.Weekday&(1<<parsedDate.Weekday()) == 0 {
			continue
		}
		if cal.StartDate > date {
			continue
		}
		if cal.EndDate < date {
			continue
		}
		services[cal.ServiceID] = true
	}

	for _, cds := range f.calendarDate {
		for _, cd := range cds {
			if cd.Date != date {
				continue
			}
			if cd.ExceptionType == model.ExceptionTypeAdded {
				services[cd.ServiceID] = true
			} else {
				services[cd.ServiceID] = false
			}
		}
	}

	activeServices := []string{}
	for serviceID, active := range services {
		if active {
			activeServices = append(activeServices, serviceID)
		}
	}
	sort.Strings(activeServices)

	return activeServices, nil
}

func (f *MemoryStorageFeed) TripHours() ([]*model.TripHour, error) {
	hours := []*model.TripHour{}

	for tripID, trip := range f.trips {
		sts := f.stopTimesByTrip[tripID]
		if len(sts) == 0 {
			hours = append(hours, &model.TripHour{
				TripID:  tripID,
				RouteID: trip.RouteID,
				HasHour: false,
			})
			continue
		}
		seen := map[int8]bool{}
		for _, st := range sts {
			if seen[st.ArrivalHour] {
				continue
			}
			seen[st.ArrivalHour] = true
			hours = append(hours, &model.TripHour{
				TripID:  tripID,
				RouteID: trip.RouteID,
				Hour:    st.ArrivalHour,
				HasHour: true,
			})
		}
	}

	sort.Slice(hours, func(i, j int) bool {
		if hours[i].TripID != hours[j].TripID {
			return hours[i].TripID < hours[j].TripID
		}
		return hours[i].Hour < hours[j].Hour
	})

	return hours, nil
}
