package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/chihacknight/chn-ghost-buses/storage"
)

// ParseFeed loads a zipped schedule archive into storage.
//
// A missing table is not an error: it is logged, recorded in the
// returned metadata, and downstream joins involving it produce no
// rows. A table that is present but malformed does fail the parse.
func ParseFeed(writer storage.FeedWriter, buf []byte, logger *slog.Logger) (*storage.FeedMetadata, error) {
	// The seven tables of a schedule archive.
	file := map[string]io.ReadCloser{
		"stops.txt":          nil,
		"stop_times.txt":     nil,
		"routes.txt":         nil,
		"trips.txt":          nil,
		"calendar.txt":       nil,
		"calendar_dates.txt": nil,
		"shapes.txt":         nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	missing := []string{}
	for _, name := range []string{
		"stops.txt", "stop_times.txt", "routes.txt", "trips.txt",
		"calendar.txt", "calendar_dates.txt", "shapes.txt",
	} {
		if file[name] == nil {
			missing = append(missing, name)
			if logger != nil {
				logger.Warn("archive is missing table", slog.String("table", name))
			}
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	routes := map[string]bool{}
	if file["routes.txt"] != nil {
		routes, err = ParseRoutes(writer, file["routes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing routes.txt: %w", err)
		}
	}

	// Parse calendar.txt and calendar_dates.txt. Extract set of
	// all service IDs, and min/max date of weekly services seen.
	var calendarStart, calendarEnd string
	services := map[string]bool{}
	if file["calendar.txt"] != nil {
		services, calendarStart, calendarEnd, err = ParseCalendar(writer, file["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
	}
	if file["calendar_dates.txt"] != nil {
		dateServices, _, _, err := ParseCalendarDates(writer, file["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
		for s := range dateServices {
			services[s] = true
		}
	}

	trips := map[string]bool{}
	if file["trips.txt"] != nil {
		trips, err = ParseTrips(writer, file["trips.txt"], routes, services, file["routes.txt"] != nil)
		if err != nil {
			return nil, fmt.Errorf("parsing trips.txt: %w", err)
		}
	}

	stops := map[string]bool{}
	if file["stops.txt"] != nil {
		stops, err = ParseStops(writer, file["stops.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing stops.txt: %w", err)
		}
	}

	if file["stop_times.txt"] != nil {
		err = ParseStopTimes(writer, file["stop_times.txt"], trips, stops, logger)
		if err != nil {
			return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
		}
	}

	if file["shapes.txt"] != nil {
		err = ParseShapes(writer, file["shapes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing shapes.txt: %w", err)
		}
	}

	return &storage.FeedMetadata{
		RetrievedAt:       time.Now().UTC(),
		CalendarStartDate: calendarStart,
		CalendarEndDate:   calendarEnd,
		MissingTables:     strings.Join(missing, ","),
	}, nil
}
