package model

import (
	"math"
	"time"
)

// Holds all external facing types and constants.

type RouteType int

const (
	RouteTypeTram       RouteType = 0
	RouteTypeSubway               = 1
	RouteTypeRail                 = 2
	RouteTypeBus                  = 3
	RouteTypeFerry                = 4
	RouteTypeCable                = 5
	RouteTypeAerial               = 6
	RouteTypeFunicular            = 7
	RouteTypeTrolleybus           = 11
	RouteTypeMonorail             = 12
)

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      RouteType
	Color     string
	TextColor string
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int8
	ShapeID     string
	BlockID     string
}

// Calendar holds a single weekly service pattern. Weekday is a
// bitmask with bit 1<<time.Monday set when the service runs on
// Mondays, and so on. Dates are "YYYYMMDD".
type Calendar struct {
	ServiceID string
	StartDate string
	EndDate   string
	Weekday   int8
}

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int8
}

const (
	ExceptionTypeAdded   int8 = 1
	ExceptionTypeRemoved int8 = 2
)

type Stop struct {
	ID            string
	Code          string
	Name          string
	Lat           float64
	Lon           float64
	ParentStation string
}

// StopTime carries, beyond the raw "HHMMSS" times, the arrival and
// departure hours normalized into 0-23 (GTFS allows hours >= 24 for
// after-midnight service).
type StopTime struct {
	TripID        string
	StopID        string
	StopSequence  uint32
	Arrival       string
	Departure     string
	ArrivalHour   int8
	DepartureHour int8
}

type ShapePoint struct {
	ShapeID  string
	Lat      float64
	Lon      float64
	Sequence uint32
}

// TripHour is one distinct (trip, arrival hour) pair taken from
// stop_times. HasHour is false for trips that have no stop_times rows
// at all; such trips still count toward route-level totals.
type TripHour struct {
	TripID  string
	RouteID string
	Hour    int8
	HasHour bool
}

// TripOccurrence is one trip that was scheduled to run on a concrete
// calendar date, per the expanded service calendar.
type TripOccurrence struct {
	Date    time.Time
	RouteID string
	TripID  string
	Hour    int8
	HasHour bool
}

// RouteDailyCount is one row of a route daily summary: the number of
// distinct trips on a route on a date. For realtime data the count is
// of distinct observed trip identifiers.
type RouteDailyCount struct {
	Date      time.Time `csv:"-" json:"-"`
	RouteID   string    `csv:"route_id" json:"route_id"`
	TripCount int       `csv:"trip_count" json:"trip_count"`
}

// PingDailySummary is the realtime daily summary for one route, with
// the distinct vehicle and block counts kept for diagnostics. Only
// TripCount feeds the schedule comparison.
type PingDailySummary struct {
	Date         time.Time
	RouteID      string
	VehicleCount int
	TripCount    int
	BlockCount   int
}

type DayType string

const (
	DayTypeWeekday  DayType = "wk"
	DayTypeSaturday DayType = "sat"
	DayTypeSunday   DayType = "sun"
	DayTypeHoliday  DayType = "hol"
)

// ReconciledDay is one row of the long output table: scheduled vs
// observed trips for a route on a date (or coarser bucket), under one
// schedule version. DayOfWeek is 0=Monday .. 6=Sunday.
type ReconciledDay struct {
	Date           time.Time
	RouteID        string
	TripCountRT    int
	TripCountSched int
	DayOfWeek      int
	DayType        DayType
	FeedVersion    string
}

// RouteDayTypeSummary is one row of the final summary: totals and the
// actual/scheduled ratio for a route and day type across the whole
// requested range. Ratio is NaN when no trips were scheduled.
type RouteDayTypeSummary struct {
	RouteID        string
	DayType        DayType
	TripCountRT    int
	TripCountSched int
	Ratio          float64
}

func (s RouteDayTypeSummary) RatioDefined() bool {
	return !math.IsNaN(s.Ratio)
}
