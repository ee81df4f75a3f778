package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Filesystem caches downloaded payloads as plain files under a
// directory, one file per cache key. A cached file is served forever:
// the upstream schedule archives and daily ping files never change
// once published.
type Filesystem struct {
	Dir string

	mutex sync.Mutex
}

func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Filesystem{Dir: dir}, nil
}

func (f *Filesystem) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {

	if options.CacheKey == "" {
		return HTTPGet(ctx, url, headers, options)
	}
	if strings.Contains(options.CacheKey, "..") {
		return nil, fmt.Errorf("bad cache key %q", options.CacheKey)
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	path := filepath.Join(f.Dir, filepath.FromSlash(options.CacheKey))

	body, err := os.ReadFile(path)
	if err == nil {
		return body, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading cached file: %w", err)
	}

	body, err = HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache subdir: %w", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return nil, fmt.Errorf("writing cached file: %w", err)
	}

	return body, nil
}
