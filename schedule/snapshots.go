package schedule

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/chihacknight/chn-ghost-buses/downloader"
)

// SnapshotFile is one deduplicated schedule snapshot in the public
// bucket. Version is the YYYYMMDD label derived from the filename.
type SnapshotFile struct {
	Filename string
	Size     int64
	Key      string
	Version  string
}

// Snapshots lists dated schedule archives from the public bucket. The
// bucket is read anonymously over plain HTTPS.
type Snapshots struct {
	Bucket     string
	Region     string
	Prefix     string
	Downloader downloader.Downloader
}

type listBucketResult struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	IsTruncated           bool            `xml:"IsTruncated"`
	NextContinuationToken string          `xml:"NextContinuationToken"`
	Contents              []bucketContent `xml:"Contents"`
}

type bucketContent struct {
	Key  string `xml:"Key"`
	ETag string `xml:"ETag"`
	Size int64  `xml:"Size"`
}

func (s *Snapshots) baseURL() string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.Bucket, s.Region)
}

// ObjectURL returns the anonymous-read URL for one listed object key.
func (s *Snapshots) ObjectURL(key string) string {
	return s.baseURL() + "/" + key
}

// List enumerates snapshot archives under the configured prefix,
// de-duplicated by content hash. When several filenames share an ETag
// the lexicographically first one wins. Results are sorted by
// filename, which for the dated naming scheme is also version order.
func (s *Snapshots) List(ctx context.Context) ([]SnapshotFile, error) {
	uniqueFiles := map[string][]SnapshotFile{}

	token := ""
	for {
		listURL := fmt.Sprintf(
			"%s/?list-type=2&prefix=%s",
			s.baseURL(), url.QueryEscape(s.Prefix),
		)
		if token != "" {
			listURL += "&continuation-token=" + url.QueryEscape(token)
		}

		body, err := s.Downloader.Get(ctx, listURL, nil, downloader.GetOptions{
			Timeout: 30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("listing bucket: %w", err)
		}

		var result listBucketResult
		if err := xml.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parsing bucket listing: %w", err)
		}

		for _, c := range result.Contents {
			filename := c.Key
			if i := strings.LastIndex(filename, "/"); i >= 0 {
				filename = filename[i+1:]
			}
			if !strings.HasPrefix(filename, "google_transit_") {
				continue
			}

			version := strings.TrimSuffix(
				strings.TrimPrefix(filename, "google_transit_"), ".zip",
			)
			version = strings.ReplaceAll(version, "-", "")

			uniqueFiles[c.ETag] = append(uniqueFiles[c.ETag], SnapshotFile{
				Filename: filename,
				Size:     c.Size,
				Key:      c.Key,
				Version:  version,
			})
		}

		if !result.IsTruncated {
			break
		}
		token = result.NextContinuationToken
	}

	files := []SnapshotFile{}
	for _, group := range uniqueFiles {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Filename < group[j].Filename
		})
		files = append(files, group[0])
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})

	return files, nil
}
