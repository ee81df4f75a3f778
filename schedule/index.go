package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chihacknight/chn-ghost-buses/config"
	"github.com/chihacknight/chn-ghost-buses/downloader"
)

const versionLayout = "20060102"

// Indexer builds the ordered list of schedule versions in effect since
// the start of realtime data collection, merging the archival catalog
// (authoritative through the cutover date) with the snapshot bucket
// (after it).
type Indexer struct {
	catalog   *Catalog
	snapshots *Snapshots
	dl        downloader.Downloader
	logger    *slog.Logger

	collectionStart time.Time
	archiveCutover  time.Time
	firstSnapshot   time.Time
	tz              *time.Location
	cutoffHour      int

	// Filled by Versions, consulted by FetchArchive.
	snapshotFiles map[string]SnapshotFile

	// Clock used for the latest-available-date rule. Overridable for
	// tests.
	Now func() time.Time
}

func NewIndexer(cfg config.Config, dl downloader.Downloader, logger *slog.Logger) (*Indexer, error) {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %s: %w", cfg.Timezone, err)
	}

	collectionStart, err := ParseDate(cfg.CollectionStart)
	if err != nil {
		return nil, fmt.Errorf("parsing collection start: %w", err)
	}
	archiveCutover, err := ParseDate(cfg.ArchiveCutover)
	if err != nil {
		return nil, fmt.Errorf("parsing archive cutover: %w", err)
	}
	firstSnapshot, err := ParseDate(cfg.FirstSnapshot)
	if err != nil {
		return nil, fmt.Errorf("parsing first snapshot date: %w", err)
	}

	return &Indexer{
		catalog: &Catalog{
			BaseURL:    cfg.CatalogBaseURL,
			FeedPath:   cfg.CatalogFeedPath,
			Downloader: dl,
			Logger:     logger,
		},
		snapshots: &Snapshots{
			Bucket:     cfg.Bucket,
			Region:     cfg.BucketRegion,
			Prefix:     cfg.SchedulePrefix,
			Downloader: dl,
		},
		dl:              dl,
		logger:          logger,
		collectionStart: collectionStart,
		archiveCutover:  archiveCutover,
		firstSnapshot:   firstSnapshot,
		tz:              tz,
		cutoffHour:      cfg.AvailabilityCutoffHour,
		snapshotFiles:   map[string]SnapshotFile{},
		Now:             time.Now,
	}, nil
}

// LatestAvailableDate is the most recent date with a complete day of
// realtime data. Before the cutoff hour (agency local time) only two
// days ago is guaranteed complete; at or after it, yesterday is.
func (ix *Indexer) LatestAvailableDate() time.Time {
	now := ix.Now().In(ix.tz)

	days := -2
	if now.Hour() >= ix.cutoffHour {
		days = -1
	}
	d := now.AddDate(0, 0, days)

	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Versions returns every schedule version from the start of data
// collection through the latest date with complete realtime data, in
// chronological order with contiguous validity windows.
func (ix *Indexer) Versions(ctx context.Context) ([]FeedInfo, error) {
	feeds, err := ix.archivalVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexing archival versions: %w", err)
	}

	snapshotFeeds, err := ix.snapshotVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexing snapshot versions: %w", err)
	}

	return append(feeds, snapshotFeeds...), nil
}

// archivalVersions scrapes the catalog back to the collection start
// month and turns consecutive publication dates into validity windows.
// A schedule published on date v is in effect starting the day after
// publication, through the day before the next version's publication.
// The final catalog version only terminates its predecessor's window;
// coverage continues with the snapshot bucket.
func (ix *Indexer) archivalVersions(ctx context.Context) ([]FeedInfo, error) {
	dates, err := ix.catalog.Versions(
		ctx, ix.collectionStart.Month(), ix.collectionStart.Year(),
	)
	if err != nil {
		return nil, err
	}

	inScope := []time.Time{}
	for _, d := range dates {
		if d.After(ix.archiveCutover) {
			continue
		}
		inScope = append(inScope, d)
	}

	feeds := []FeedInfo{}
	for i := 0; i+1 < len(inScope); i++ {
		start := inScope[i].AddDate(0, 0, 1)
		end := inScope[i+1].AddDate(0, 0, -1)

		// The earliest version predates data collection; pin its
		// window to the eve of the first collected date so ranges
		// align.
		if pin := ix.collectionStart.AddDate(0, 0, -1); i == 0 && start.Before(pin) {
			start = pin
		}

		fi, err := NewFeedInfo(
			inScope[i].Format(versionLayout), start, end, SourceTransitFeeds,
		)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, fi)
	}

	return feeds, nil
}

// snapshotVersions lists the bucket and windows consecutive snapshot
// dates, the last window running through the latest complete realtime
// date. Unlike archival versions, a snapshot's window starts on the
// snapshot date itself.
func (ix *Indexer) snapshotVersions(ctx context.Context) ([]FeedInfo, error) {
	files, err := ix.snapshots.List(ctx)
	if err != nil {
		return nil, err
	}

	versions := []time.Time{}
	for _, f := range files {
		d, err := time.Parse(versionLayout, f.Version)
		if err != nil {
			ix.logger.Warn(
				"skipping snapshot with undated filename",
				slog.String("key", f.Key),
			)
			continue
		}
		if d.Before(ix.firstSnapshot) {
			continue
		}
		versions = append(versions, d)
		ix.snapshotFiles[f.Version] = f
	}

	latest := ix.LatestAvailableDate()

	feeds := []FeedInfo{}
	for i, v := range versions {
		end := latest
		if i+1 < len(versions) {
			end = versions[i+1].AddDate(0, 0, -1)
		}

		fi, err := NewFeedInfo(v.Format(versionLayout), v, end, SourceBucket)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, fi)
	}

	return feeds, nil
}

// FetchArchive downloads (or reads from the local cache) the zipped
// schedule archive for a version. Versions must come from a prior
// Versions call so bucket keys are known.
func (ix *Indexer) FetchArchive(ctx context.Context, fi FeedInfo) ([]byte, error) {
	switch fi.Source {
	case SourceTransitFeeds:
		return ix.dl.Get(ctx, ix.catalog.ZipURL(fi.Version), nil, downloader.GetOptions{
			Timeout:  5 * time.Minute,
			CacheKey: "downloads/" + fi.Version + ".zip",
		})
	case SourceBucket:
		f, found := ix.snapshotFiles[fi.Version]
		if !found {
			return nil, fmt.Errorf("unknown snapshot version %s", fi.Version)
		}
		return ix.dl.Get(ctx, ix.snapshots.ObjectURL(f.Key), nil, downloader.GetOptions{
			Timeout:  5 * time.Minute,
			CacheKey: "cta_zipfiles/" + f.Filename,
		})
	}
	return nil, fmt.Errorf("version %s has unknown source", fi.Version)
}

// FilterRange returns the versions overlapping [start, end], each
// clipped to the intersection of its own window and the range.
// Versions wholly outside the range are dropped.
func FilterRange(feeds []FeedInfo, start, end time.Time) []FeedInfo {
	out := []FeedInfo{}
	for _, fi := range feeds {
		clipped, ok := fi.Clip(start, end)
		if !ok {
			continue
		}
		out = append(out, clipped)
	}
	return out
}
