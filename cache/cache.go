// Package cache memoizes per-version reconciliation results to disk.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/chihacknight/chn-ghost-buses/model"
)

// Cache persists reconciled tables under Dir, one file per
// (logical name, version key) pair. Entries are never invalidated
// automatically; IgnoreCache forces recompute and overwrite.
type Cache struct {
	Dir         string
	IgnoreCache bool
	Logger      *slog.Logger
}

func New(dir string, ignoreCache bool, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{
		Dir:         dir,
		IgnoreCache: ignoreCache,
		Logger:      logger,
	}, nil
}

// GetOrCompute returns the persisted table for (name, filename),
// invoking fn and persisting its result on a miss. The filename's
// extension selects the physical format: .csv or .jsonl. An empty
// result is persisted as-is and served as empty on later hits, not
// recomputed indefinitely.
//
// Identity is solely the (name, filename) pair; fn must be a pure
// function of it.
func (c *Cache) GetOrCompute(
	name, filename string,
	fn func() ([]model.ReconciledDay, error),
) ([]model.ReconciledDay, error) {

	jsonl := false
	switch filepath.Ext(filename) {
	case ".csv":
	case ".jsonl":
		jsonl = true
	default:
		return nil, fmt.Errorf("cache filename '%s' needs a .csv or .jsonl extension", filename)
	}

	path := filepath.Join(c.Dir, name, filename)

	if !c.IgnoreCache {
		data, err := os.ReadFile(path)
		if err == nil {
			c.Logger.Info("cache hit", slog.String("path", path))
			if jsonl {
				return c.readJSONL(data, path)
			}
			return c.readCSV(data, path)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading cache file: %w", err)
		}
	}

	c.Logger.Info("computing cache entry", slog.String("path", path))
	rows, err := fn()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache subdir: %w", err)
	}

	var data []byte
	if jsonl {
		data, err = writeJSONL(rows)
	} else {
		data, err = writeCSV(rows)
	}
	if err != nil {
		return nil, fmt.Errorf("serializing cache entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing cache file: %w", err)
	}

	return rows, nil
}

// The persisted form loses native date types: dates are stored as
// millisecond epoch integers and re-derived on read.
type reconciledRow struct {
	Date           string `csv:"date"`
	RouteID        string `csv:"route_id"`
	TripCountRT    int    `csv:"trip_count_rt"`
	TripCountSched int    `csv:"trip_count_sched"`
	DayOfWeek      int    `csv:"dayofweek"`
	DayType        string `csv:"day_type"`
	FeedVersion    string `csv:"feed_version"`
}

type reconciledJSONRow struct {
	Date           any    `json:"date"`
	RouteID        string `json:"route_id"`
	TripCountRT    int    `json:"trip_count_rt"`
	TripCountSched int    `json:"trip_count_sched"`
	DayOfWeek      int    `json:"dayofweek"`
	DayType        string `json:"day_type"`
	FeedVersion    string `json:"feed_version"`
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// parseEpoch turns a persisted date cell back into a time. A value
// that is not a valid integer epoch yields a null date, not an error.
func (c *Cache) parseEpoch(raw string, path string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.Logger.Warn(
			"cache entry has non-integer date, treating as null",
			slog.String("path", path),
			slog.String("value", raw),
		)
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (c *Cache) fromRow(r reconciledRow, path string) model.ReconciledDay {
	return model.ReconciledDay{
		Date:           c.parseEpoch(r.Date, path),
		RouteID:        r.RouteID,
		TripCountRT:    r.TripCountRT,
		TripCountSched: r.TripCountSched,
		DayOfWeek:      r.DayOfWeek,
		DayType:        model.DayType(r.DayType),
		FeedVersion:    r.FeedVersion,
	}
}

func toRow(d model.ReconciledDay) reconciledRow {
	return reconciledRow{
		Date:           strconv.FormatInt(epochMillis(d.Date), 10),
		RouteID:        d.RouteID,
		TripCountRT:    d.TripCountRT,
		TripCountSched: d.TripCountSched,
		DayOfWeek:      d.DayOfWeek,
		DayType:        string(d.DayType),
		FeedVersion:    d.FeedVersion,
	}
}

func writeCSV(rows []model.ReconciledDay) ([]byte, error) {
	out := make([]reconciledRow, len(rows))
	for i, d := range rows {
		out[i] = toRow(d)
	}
	return gocsv.MarshalBytes(&out)
}

func (c *Cache) readCSV(data []byte, path string) ([]model.ReconciledDay, error) {
	raw := []reconciledRow{}
	if err := gocsv.UnmarshalBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing cache csv %s: %w", path, err)
	}

	rows := make([]model.ReconciledDay, len(raw))
	for i, r := range raw {
		rows[i] = c.fromRow(r, path)
	}
	return rows, nil
}

func writeJSONL(rows []model.ReconciledDay) ([]byte, error) {
	out := []byte{}
	for _, d := range rows {
		line, err := json.Marshal(reconciledJSONRow{
			Date:           epochMillis(d.Date),
			RouteID:        d.RouteID,
			TripCountRT:    d.TripCountRT,
			TripCountSched: d.TripCountSched,
			DayOfWeek:      d.DayOfWeek,
			DayType:        string(d.DayType),
			FeedVersion:    d.FeedVersion,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out, nil
}

func (c *Cache) readJSONL(data []byte, path string) ([]model.ReconciledDay, error) {
	rows := []model.ReconciledDay{}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	for decoder.More() {
		var r reconciledJSONRow
		if err := decoder.Decode(&r); err != nil {
			return nil, fmt.Errorf("parsing cache jsonl %s: %w", path, err)
		}
		rows = append(rows, model.ReconciledDay{
			Date:           c.parseEpoch(fmt.Sprint(r.Date), path),
			RouteID:        r.RouteID,
			TripCountRT:    r.TripCountRT,
			TripCountSched: r.TripCountSched,
			DayOfWeek:      r.DayOfWeek,
			DayType:        model.DayType(r.DayType),
			FeedVersion:    r.FeedVersion,
		})
	}

	return rows, nil
}
