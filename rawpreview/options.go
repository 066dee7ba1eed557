package rawpreview

import "time"

// ExtractionOptions controls how an Extractor locates and selects previews.
// The zero value is not usable directly; start from DefaultOptions.
type ExtractionOptions struct {
	TargetMinSize    uint32
	TargetMaxSize    uint32
	PreferredQuality PreviewQuality
	UseCache         bool
	Timeout          time.Duration
	MaxMemoryMB      uint64
	IncludeMetadata  bool
	StrictValidation bool
}

// DefaultOptions returns the library's default extraction behavior.
func DefaultOptions() ExtractionOptions {
	return ExtractionOptions{
		TargetMinSize:    200 * 1024,
		TargetMaxSize:    3 * 1024 * 1024,
		PreferredQuality: QualityPreview,
		UseCache:         false,
		Timeout:          5 * time.Second,
		MaxMemoryMB:      100,
		IncludeMetadata:  false,
		StrictValidation: true,
	}
}
