package rawpreview

import (
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// cacheKey identifies a cached extraction by the file's path, modification
// time, and size. Any change to mtime or size invalidates the entry without
// needing an explicit cache-clear call.
type cacheKey struct {
	path    string
	modTime time.Time
	size    int64
}

type cacheEntry struct {
	result  ExtractionResult
	encoded []byte // zstd-compressed copy of result.Data
}

// previewCache holds recently extracted preview bytes compressed with zstd,
// trading a small amount of CPU on hit for a much smaller memory footprint
// than keeping every cached JPEG preview raw in memory.
type previewCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newPreviewCache() *previewCache {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ := zstd.NewReader(nil)
	return &previewCache{
		entries: make(map[cacheKey]cacheEntry),
		encoder: encoder,
		decoder: decoder,
	}
}

func (c *previewCache) get(path string, modTime time.Time, size int64) (ExtractionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey{path: path, modTime: modTime, size: size}]
	if !ok {
		return ExtractionResult{}, false
	}

	data, err := c.decoder.DecodeAll(entry.encoded, nil)
	if err != nil {
		return ExtractionResult{}, false
	}

	result := entry.result
	result.Data = data
	return result, true
}

func (c *previewCache) put(path string, modTime time.Time, size int64, result ExtractionResult) {
	if c.encoder == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	encoded := c.encoder.EncodeAll(result.Data, nil)
	result.Data = nil // only the compressed copy is retained
	c.entries[cacheKey{path: path, modTime: modTime, size: size}] = cacheEntry{
		result:  result,
		encoded: encoded,
	}
}
