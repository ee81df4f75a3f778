package ghostbuses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chihacknight/chn-ghost-buses/agg"
	"github.com/chihacknight/chn-ghost-buses/cache"
	"github.com/chihacknight/chn-ghost-buses/compare"
	"github.com/chihacknight/chn-ghost-buses/config"
	"github.com/chihacknight/chn-ghost-buses/downloader"
	"github.com/chihacknight/chn-ghost-buses/expand"
	"github.com/chihacknight/chn-ghost-buses/internal/logging"
	"github.com/chihacknight/chn-ghost-buses/model"
	"github.com/chihacknight/chn-ghost-buses/parse"
	"github.com/chihacknight/chn-ghost-buses/rt"
	"github.com/chihacknight/chn-ghost-buses/schedule"
	"github.com/chihacknight/chn-ghost-buses/storage"
)

// ErrEmptySchedule marks a version whose schedule data produced no
// rows, typically because the archive was missing tables. The version
// is skipped, not fatal.
var ErrEmptySchedule = errors.New("empty schedule data")

// Pipeline wires the schedule index, feed storage, calendar expansion,
// realtime summarization and reconciliation into one run. Work is
// sequential: one schedule version at a time, one realtime day at a
// time.
type Pipeline struct {
	cfg        config.Config
	storage    storage.Storage
	indexer    *schedule.Indexer
	expander   *expand.Expander
	reconciler *compare.Reconciler
	days       *rt.DayReader
	cache      *cache.Cache
	logger     *slog.Logger
}

func NewPipeline(
	cfg config.Config,
	s storage.Storage,
	ignoreCache bool,
	logger *slog.Logger,
) (*Pipeline, error) {

	dl, err := downloader.NewFilesystem(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("building downloader: %w", err)
	}

	indexer, err := schedule.NewIndexer(cfg, dl, logger)
	if err != nil {
		return nil, fmt.Errorf("building schedule indexer: %w", err)
	}

	reconciler, err := compare.NewReconciler(cfg.Holidays)
	if err != nil {
		return nil, fmt.Errorf("building reconciler: %w", err)
	}

	resultCache, err := cache.New(cfg.CacheDir, ignoreCache, logger)
	if err != nil {
		return nil, fmt.Errorf("building result cache: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		storage:    s,
		indexer:    indexer,
		expander:   &expand.Expander{Logger: logger},
		reconciler: reconciler,
		days: &rt.DayReader{
			Bucket:     cfg.Bucket,
			Region:     cfg.BucketRegion,
			Prefix:     cfg.PingPrefix,
			Downloader: dl,
			Logger:     logger,
		},
		cache:  resultCache,
		logger: logger,
	}, nil
}

// Versions returns the full schedule version index.
func (p *Pipeline) Versions(ctx context.Context) ([]schedule.FeedInfo, error) {
	return p.indexer.Versions(ctx)
}

// loadFeed makes sure the version's parsed tables are in storage,
// fetching and parsing the archive on first use, and returns a reader
// for them.
func (p *Pipeline) loadFeed(ctx context.Context, fi schedule.FeedInfo) (storage.FeedReader, error) {
	feeds, err := p.storage.ListFeeds(storage.ListFeedsFilter{Version: fi.Version})
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}

	if len(feeds) == 0 {
		logging.LogOperation(
			p.logger, "fetching schedule archive",
			slog.String("version", fi.Version),
			slog.String("source", fi.Source.String()),
		)

		buf, err := p.indexer.FetchArchive(ctx, fi)
		if err != nil {
			return nil, fmt.Errorf("fetching archive %s: %w", fi.Version, err)
		}

		writer, err := p.storage.GetWriter(fi.Version)
		if err != nil {
			return nil, fmt.Errorf("getting writer: %w", err)
		}

		metadata, err := parse.ParseFeed(writer, buf, p.logger)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("parsing feed %s: %w", fi.Version, err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("closing writer: %w", err)
		}

		metadata.Version = fi.Version
		metadata.Source = fi.Source.String()
		if err := p.storage.WriteFeedMetadata(metadata); err != nil {
			return nil, fmt.Errorf("writing feed metadata: %w", err)
		}
	}

	return p.storage.GetReader(fi.Version)
}

// ScheduleCounts expands one version's calendars and reduces them to
// scheduled trips per route per date, over the version's validity
// window.
func (p *Pipeline) ScheduleCounts(ctx context.Context, fi schedule.FeedInfo) ([]model.RouteDailyCount, error) {
	reader, err := p.loadFeed(ctx, fi)
	if err != nil {
		return nil, err
	}

	occurrences, err := p.expander.Expand(reader, fi)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", fi.Version, err)
	}

	return expand.Summarize(occurrences), nil
}

// CompareVersion produces (or serves from cache) the long reconciled
// table for one schedule version at the given frequency.
func (p *Pipeline) CompareVersion(
	ctx context.Context,
	fi schedule.FeedInfo,
	freq agg.Frequency,
) ([]model.ReconciledDay, error) {

	name := fmt.Sprintf("schedule_rt_comparisons_%s", freq)

	return p.cache.GetOrCompute(name, fi.Key()+".csv", func() ([]model.ReconciledDay, error) {
		schedCounts, err := p.ScheduleCounts(ctx, fi)
		if err != nil {
			return nil, err
		}
		if len(schedCounts) == 0 {
			return nil, fmt.Errorf("version %s: %w", fi.Version, ErrEmptySchedule)
		}

		pings, err := p.days.SummarizeRange(ctx, fi.StartDate, fi.EndDate)
		if err != nil {
			return nil, err
		}

		return p.reconciler.Reconcile(
			rt.DailyCounts(pings), schedCounts, freq, fi.Version,
		), nil
	})
}

// Compare runs the whole reconciliation over [start, end]: index the
// schedule versions, clip them to the range, reconcile each, and
// combine into the long table and the route by day-type summary.
//
// A version with empty schedule data contributes nothing; this is
// logged and the run continues.
func (p *Pipeline) Compare(
	ctx context.Context,
	start, end time.Time,
	freq agg.Frequency,
) ([]model.ReconciledDay, []model.RouteDayTypeSummary, error) {

	feeds, err := p.Versions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("indexing schedule versions: %w", err)
	}

	inRange := schedule.FilterRange(feeds, start, end)
	for _, fi := range feeds {
		if _, ok := fi.Clip(start, end); !ok {
			p.logger.Info(
				"version out of requested range, skipping",
				slog.String("version", fi.Key()),
			)
		}
	}

	versionTables := [][]model.ReconciledDay{}
	for _, fi := range inRange {
		logging.LogOperation(p.logger, "processing schedule version", slog.String("version", fi.Key()))

		long, err := p.CompareVersion(ctx, fi, freq)
		if errors.Is(err, ErrEmptySchedule) {
			p.logger.Warn(
				"version has no schedule data, skipping",
				slog.String("version", fi.Key()),
			)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("comparing version %s: %w", fi.Version, err)
		}

		versionTables = append(versionTables, long)
	}

	combined := compare.Combine(versionTables, start, end)

	return combined, compare.Summarize(combined), nil
}
