package parse

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

type ShapeCSV struct {
	ShapeID  string `csv:"shape_id"`
	Lat      string `csv:"shape_pt_lat"`
	Lon      string `csv:"shape_pt_lon"`
	Sequence uint32 `csv:"shape_pt_sequence"`
}

func ParseShapes(writer storage.FeedWriter, data io.Reader) error {
	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(s *ShapeCSV) error {
		i++

		if s.ShapeID == "" {
			return fmt.Errorf("record %d: empty shape_id", i)
		}

		lat, err := strconv.ParseFloat(s.Lat, 64)
		if err != nil {
			return fmt.Errorf("record %d: shape_pt_lat: %w", i, err)
		}
		lon, err := strconv.ParseFloat(s.Lon, 64)
		if err != nil {
			return fmt.Errorf("record %d: shape_pt_lon: %w", i, err)
		}

		return writer.WriteShapePoint(&model.ShapePoint{
			ShapeID:  s.ShapeID,
			Lat:      lat,
			Lon:      lon,
			Sequence: s.Sequence,
		})
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling shapes csv")
	}

	return nil
}
