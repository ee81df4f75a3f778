package storage

import (
	"time"

	"github.com/chihacknight/chn-ghost-buses/model"
)

type Storage interface {
	// Retrieves all feed metadata records matching the given
	// filter.
	ListFeeds(filter ListFeedsFilter) ([]*FeedMetadata, error)

	// Writes a FeedMetadata record. If a record with the same
	// version exists, it is updated.
	WriteFeedMetadata(metadata *FeedMetadata) error

	// Gets a reader for the feed with the given version.
	GetReader(version string) (FeedReader, error)

	// Gets a writer for the feed with the given version. Any
	// previously written records for the version are discarded.
	GetWriter(version string) (FeedWriter, error)
}

type ListFeedsFilter struct {
	// If set, only include feeds with the given version.
	Version string

	// If set, only include feeds from the given source.
	Source string
}

// Metadata for a parsed schedule feed. The parsed tables can be
// accessed via FeedReader.
type FeedMetadata struct {
	Version     string
	Source      string
	RetrievedAt time.Time

	// Min start_date and max end_date across all calendar rows,
	// YYYYMMDD. Blank when calendar.txt was absent.
	CalendarStartDate string
	CalendarEndDate   string

	// Comma separated names of tables missing from the archive,
	// blank for a complete feed.
	MissingTables string
}

// Writes GTFS records for a single feed.
//
// As trips.txt and stop_times.txt tend to be large, Begin/End calls
// bracket their writes, allowing transactions/batching/whathaveyou.
type FeedWriter interface {
	WriteRoute(route *model.Route) error
	WriteStop(stop *model.Stop) error
	BeginTrips() error
	WriteTrip(trip *model.Trip) error
	EndTrips() error
	BeginStopTimes() error
	WriteStopTime(stopTime *model.StopTime) error
	EndStopTimes() error
	WriteCalendar(cal *model.Calendar) error
	WriteCalendarDate(caldate *model.CalendarDate) error
	WriteShapePoint(pt *model.ShapePoint) error
	Close() error
}

type FeedReader interface {
	Routes() ([]*model.Route, error)
	Trips() ([]*model.Trip, error)
	Calendars() ([]*model.Calendar, error)
	CalendarDates() ([]*model.CalendarDate, error)

	// Service IDs for all services active on the given date,
	// resolved against the weekly patterns and exception dates.
	// Date is given as YYYYMMDD.
	ActiveServices(date string) ([]string, error)

	// Distinct (trip, arrival hour) pairs from stop_times, joined
	// to the trip's route. A trip with no stop_times rows appears
	// exactly once, with HasHour false.
	TripHours() ([]*model.TripHour, error)
}
