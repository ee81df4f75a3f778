package schedule

import (
	"fmt"
	"time"
)

// Source identifies which upstream catalog a feed version came from.
type Source int

const (
	SourceTransitFeeds Source = iota + 1
	SourceBucket
)

func (s Source) String() string {
	switch s {
	case SourceTransitFeeds:
		return "transitfeeds"
	case SourceBucket:
		return "bucket"
	}
	return "unknown"
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date into a UTC midnight instant.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// FormatDate renders a date back to YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FeedInfo identifies one schedule version: its label, the inclusive
// date window during which it was the schedule in effect, and where it
// came from. StartDate and EndDate are UTC midnight instants.
type FeedInfo struct {
	Version   string
	StartDate time.Time
	EndDate   time.Time
	Source    Source
}

// NewFeedInfo builds a FeedInfo, rejecting inverted windows.
func NewFeedInfo(version string, start, end time.Time, source Source) (FeedInfo, error) {
	if version == "" {
		return FeedInfo{}, fmt.Errorf("empty version label")
	}
	if end.Before(start) {
		return FeedInfo{}, fmt.Errorf(
			"version %s: start %s after end %s",
			version, FormatDate(start), FormatDate(end),
		)
	}

	return FeedInfo{
		Version:   version,
		StartDate: start,
		EndDate:   end,
		Source:    source,
	}, nil
}

// Key returns the string identity used to name cache artifacts for
// this version. Bucket-sourced feeds carry a suffix so they can't
// collide with an archival feed republished on the same date.
func (f FeedInfo) Key() string {
	label := ""
	if f.Source == SourceBucket {
		label = "_cta"
	}
	return fmt.Sprintf(
		"v_%s_fs_%s_fe_%s%s",
		f.Version, FormatDate(f.StartDate), FormatDate(f.EndDate), label,
	)
}

func (f FeedInfo) String() string {
	return f.Key()
}

// Contains reports whether d falls within the validity window.
func (f FeedInfo) Contains(d time.Time) bool {
	return !d.Before(f.StartDate) && !d.After(f.EndDate)
}

// Clip intersects the validity window with [start, end]. The second
// return is false when the two ranges are disjoint.
func (f FeedInfo) Clip(start, end time.Time) (FeedInfo, bool) {
	clipped := f
	if start.After(clipped.StartDate) {
		clipped.StartDate = start
	}
	if end.Before(clipped.EndDate) {
		clipped.EndDate = end
	}
	if clipped.EndDate.Before(clipped.StartDate) {
		return FeedInfo{}, false
	}
	return clipped, true
}
