package parse

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

type StopCSV struct {
	ID            string `csv:"stop_id"`
	Code          string `csv:"stop_code"`
	Name          string `csv:"stop_name"`
	Lat           string `csv:"stop_lat"`
	Lon           string `csv:"stop_lon"`
	ParentStation string `csv:"parent_station"`
}

func ParseStops(writer storage.FeedWriter, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stops := map[string]bool{}
	for _, s := range stopCsv {
		if stops[s.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", s.ID)
		}
		stops[s.ID] = true

		if s.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}

		var lat, lon float64
		var err error
		if s.Lat != "" {
			lat, err = strconv.ParseFloat(s.Lat, 64)
			if err != nil {
				return nil, fmt.Errorf("stop_id '%s' has invalid stop_lat: %w", s.ID, err)
			}
		}
		if s.Lon != "" {
			lon, err = strconv.ParseFloat(s.Lon, 64)
			if err != nil {
				return nil, fmt.Errorf("stop_id '%s' has invalid stop_lon: %w", s.ID, err)
			}
		}

		err = writer.WriteStop(&model.Stop{
			ID:            s.ID,
			Code:          s.Code,
			Name:          s.Name,
			Lat:           lat,
			Lon:           lon,
			ParentStation: s.ParentStation,
		})
		if err != nil {
			return nil, fmt.Errorf("writing stop: %w", err)
		}
	}

	return stops, nil
}
