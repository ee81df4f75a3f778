package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"cacheDir: /tmp/elsewhere\n"+
			"availabilityCutoffHour: 9\n"+
			"holidays:\n"+
			"  - \"2024-07-04\"\n",
	), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/elsewhere", cfg.CacheDir)
	assert.Equal(t, 9, cfg.AvailabilityCutoffHour)
	assert.Equal(t, []string{"2024-07-04"}, cfg.Holidays)

	// Unset fields keep their defaults.
	assert.Equal(t, "chn-ghost-buses-public", cfg.Bucket)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad date", "collectionStart: \"May 2022\"\n"},
		{"bad cutoff hour", "availabilityCutoffHour: 25\n"},
		{"bad holiday", "holidays: [\"tomorrow\"]\n"},
		{"bad catalog url", "catalogBaseURL: \"not a url\"\n"},
		{"empty bucket", "bucket: \"\"\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
