package parse

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

func parseStopTimeTime(s string) (string, int, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return "", 0, fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(str)
		if err != nil {
			return "", 0, fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return "", 0, fmt.Errorf("invalid hour in '%s'", s)
	}

	if hms[1] < 0 || hms[1] > 59 {
		return "", 0, fmt.Errorf("invalid minute in '%s'", s)
	}

	if hms[2] < 0 || hms[2] > 59 {
		return "", 0, fmt.Errorf("invalid second in '%s'", s)
	}

	// Hours past midnight fold back onto the service date's clock.
	hour := hms[0]
	if hour >= 24 {
		hour -= 24
	}

	return fmt.Sprintf("%02d%02d%02d", hms[0], hms[1], hms[2]), hour, nil
}

func ParseStopTimes(
	writer storage.FeedWriter,
	data io.Reader,
	trips map[string]bool,
	stops map[string]bool,
	logger *slog.Logger,
) error {

	err := writer.BeginStopTimes()
	if err != nil {
		return errors.Wrap(err, "beginning stop_times")
	}

	// Dwells spanning an hour boundary are worth knowing about:
	// the same trip then lands in two arrival-hour buckets.
	crossHourDwells := 0

	i := -1
	err = gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i++

		if st.TripID == "" {
			return fmt.Errorf("record %d: empty trip_id", i)
		}
		if len(trips) > 0 && !trips[st.TripID] {
			return fmt.Errorf("record %d: unknown trip_id '%s'", i, st.TripID)
		}
		if st.StopID == "" {
			return fmt.Errorf("record %d: empty stop_id", i)
		}
		if len(stops) > 0 && !stops[st.StopID] {
			return fmt.Errorf("record %d: unknown stop_id '%s'", i, st.StopID)
		}

		arrival, arrivalHour, err := parseStopTimeTime(st.ArrivalTime)
		if err != nil {
			return fmt.Errorf("record %d: arrival_time: %w", i, err)
		}
		departure, departureHour, err := parseStopTimeTime(st.DepartureTime)
		if err != nil {
			return fmt.Errorf("record %d: departure_time: %w", i, err)
		}

		if arrivalHour != departureHour {
			crossHourDwells++
		}

		return writer.WriteStopTime(&model.StopTime{
			TripID:        st.TripID,
			StopID:        st.StopID,
			StopSequence:  st.StopSequence,
			Arrival:       arrival,
			Departure:     departure,
			ArrivalHour:   int8(arrivalHour),
			DepartureHour: int8(departureHour),
		})
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling stop_times csv")
	}

	if crossHourDwells > 0 && logger != nil {
		logger.Warn(
			"stop_times has dwell periods crossing the hour boundary",
			slog.Int("count", crossHourDwells),
		)
	}

	err = writer.EndStopTimes()
	if err != nil {
		return errors.Wrap(err, "ending stop_times")
	}

	return nil
}
