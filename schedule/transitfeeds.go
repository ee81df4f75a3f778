package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/chihacknight/chn-ghost-buses/downloader"
)

// The archival catalog renders publication dates in a few different
// shapes depending on locale and page age.
var catalogDateLayouts = []string{
	"2 January 2006",
	"02 January 2006",
	"January 2, 2006",
	"2006-01-02",
}

// The catalog stopped updating in December 2023; its listing is a few
// dozen pages at most. Anything past this means the target month was
// never found.
const catalogMaxPages = 200

// Catalog scrapes schedule publication dates from the archival web
// listing. Pages are fetched newest first; scraping stops once a date
// in the requested month is seen.
type Catalog struct {
	BaseURL    string
	FeedPath   string
	Downloader downloader.Downloader
	Logger     *slog.Logger
}

// Versions returns the sorted, de-duplicated publication dates back to
// and including the given month and year. Duplicate listed dates are
// logged, not fatal: a duplicate may be a schedule superseded before
// it took effect.
func (c *Catalog) Versions(ctx context.Context, month time.Month, year int) ([]time.Time, error) {
	dates := []time.Time{}
	found := false

	for page := 1; !found; page++ {
		if page > catalogMaxPages {
			return nil, fmt.Errorf(
				"no schedule for %s %d within %d catalog pages",
				month, year, catalogMaxPages,
			)
		}

		c.Logger.Info("searching catalog page", slog.Int("page", page))

		url := fmt.Sprintf("%s%s?p=%d", c.BaseURL, c.FeedPath, page)
		body, err := c.Downloader.Get(ctx, url, nil, downloader.GetOptions{
			Timeout: 30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching catalog page %d: %w", page, err)
		}

		pageDates, err := parseCatalogPage(body)
		if err != nil {
			return nil, fmt.Errorf("parsing catalog page %d: %w", page, err)
		}

		for _, d := range pageDates {
			if d.Month() == month && d.Year() == year {
				c.Logger.Info(
					"found schedule in target month",
					slog.String("date", FormatDate(d)),
				)
				dates = append(dates, d)
				found = true
				continue
			}
			if found {
				break
			}
			dates = append(dates, d)
		}
	}

	seen := map[time.Time]bool{}
	duplicates := []string{}
	unique := []time.Time{}
	for _, d := range dates {
		if seen[d] {
			duplicates = append(duplicates, FormatDate(d))
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	if len(duplicates) > 0 {
		c.Logger.Warn(
			"catalog lists duplicate schedule versions, check whether these were in effect",
			slog.String("dates", strings.Join(duplicates, ",")),
		)
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	return unique, nil
}

// ZipURL returns the download URL for one archival version label.
func (c *Catalog) ZipURL(version string) string {
	return fmt.Sprintf("%s%s/%s/download", c.BaseURL, c.FeedPath, version)
}

// parseCatalogPage pulls the publication date out of the first column
// of each row of the page's first table.
func parseCatalogPage(body []byte) ([]time.Time, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	table := findElement(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("no table in catalog page")
	}

	dates := []time.Time{}
	for _, row := range findElements(table, "tr") {
		cell := findElement(row, "td")
		if cell == nil {
			continue
		}
		text := strings.TrimSpace(nodeText(cell))
		if text == "" {
			continue
		}
		d, err := parseCatalogDate(text)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("no dates in catalog table")
	}

	return dates, nil
}

func parseCatalogDate(s string) (time.Time, error) {
	for _, layout := range catalogDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized catalog date '%s'", s)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findElements(n *html.Node, tag string) []*html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return []*html.Node{n}
	}
	found := []*html.Node{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		found = append(found, findElements(c, tag)...)
	}
	return found
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}
