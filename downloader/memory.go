package downloader

import (
	"context"
	"sync"
)

// Caches downloaded files in memory.
type MemoryDownloader struct {
	mutex sync.Mutex
	cache map[string][]byte
}

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{
		cache: make(map[string][]byte),
	}
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.CacheKey != "" {
		d.mutex.Lock()
		defer d.mutex.Unlock()

		if body, ok := d.cache[options.CacheKey]; ok {
			return body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.CacheKey != "" {
		d.cache[options.CacheKey] = body
	}

	return body, nil
}
