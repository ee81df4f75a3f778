package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config collects everything that used to live in module-level
// globals in earlier revisions of the pipeline: bucket identifiers,
// catalog URLs, the agency timezone, holidays, and the various cutoff
// dates that anchor the schedule version index.
type Config struct {
	// Public S3 bucket holding schedule snapshots and daily ping
	// files. Read anonymously.
	Bucket       string `yaml:"bucket" validate:"required"`
	BucketRegion string `yaml:"bucketRegion" validate:"required"`

	// Key prefixes within the bucket.
	SchedulePrefix string `yaml:"schedulePrefix" validate:"required"`
	PingPrefix     string `yaml:"pingPrefix" validate:"required"`

	// Archival schedule catalog (transitfeeds.com).
	CatalogBaseURL  string `yaml:"catalogBaseURL" validate:"required,url"`
	CatalogFeedPath string `yaml:"catalogFeedPath" validate:"required"`

	// Agency timezone, used to decide the latest date with complete
	// realtime data.
	Timezone string `yaml:"timezone" validate:"required"`

	// Hour of day (agency local time) after which yesterday's
	// realtime data is considered complete.
	AvailabilityCutoffHour int `yaml:"availabilityCutoffHour" validate:"gte=0,lt=24"`

	// First date of realtime data collection, YYYY-MM-DD. The
	// earliest in-scope archival schedule version has its window
	// start pinned to the day before this date.
	CollectionStart string `yaml:"collectionStart" validate:"required,datetime=2006-01-02"`

	// Last schedule version published on the archival catalog and
	// first version available as a bucket snapshot, YYYY-MM-DD.
	ArchiveCutover string `yaml:"archiveCutover" validate:"required,datetime=2006-01-02"`
	FirstSnapshot  string `yaml:"firstSnapshot" validate:"required,datetime=2006-01-02"`

	// Holidays within the analyzed period, YYYY-MM-DD. A date on
	// this list is classified "hol" regardless of its weekday.
	Holidays []string `yaml:"holidays" validate:"dive,datetime=2006-01-02"`

	// Directory for downloaded archives and reconciliation results.
	CacheDir string `yaml:"cacheDir" validate:"required"`
}

// Default returns the configuration matching the CTA deployment the
// pipeline was built for.
func Default() Config {
	return Config{
		Bucket:                 "chn-ghost-buses-public",
		BucketRegion:           "us-east-2",
		SchedulePrefix:         "cta_schedule_zipfiles_raw/",
		PingPrefix:             "bus_full_day_data_v2/",
		CatalogBaseURL:         "https://transitfeeds.com",
		CatalogFeedPath:        "/p/chicago-transit-authority/165",
		Timezone:               "America/Chicago",
		AvailabilityCutoffHour: 11,
		CollectionStart:        "2022-05-20",
		ArchiveCutover:         "2023-12-07",
		FirstSnapshot:          "2023-12-16",
		Holidays: []string{
			"2022-05-31", "2022-07-04", "2022-09-05",
			"2022-11-24", "2022-12-25",
		},
		CacheDir: "data_output/scratch",
	}
}

// Load reads a YAML config file, fills unset fields from Default,
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}
