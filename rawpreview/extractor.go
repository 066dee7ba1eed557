package rawpreview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// formatParser is implemented by every vendor-specific preview extractor.
// Each format has its own notion of priority and tie-breaking, so selection
// is never generalized beyond this interface.
type formatParser interface {
	CanParse(data []byte) bool
	ExtractPreviews(data []byte) []PreviewInfo
	SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool)
}

// detectionOrder fixes the sequence formats are probed in. CR3 must precede
// CR2 (both start with a TIFF-like or ISO-BMFF signature that could
// otherwise be ambiguous), and the TIFF-based vendor formats are ordered by
// how distinctive their identifying markers are, cheapest and most specific
// checks first.
var detectionOrder = []RawFormat{FormatCR3, FormatCR2, FormatNEF, FormatARW, FormatDNG, FormatRAF, FormatORF, FormatRW2}

// memoryCheckThreshold is the input size below which the memory-limit check
// is skipped outright: most RAW files are tens of megabytes and would
// otherwise trip a conservative MaxMemoryMB on perfectly ordinary input.
const memoryCheckThreshold = 200 * 1024 * 1024

func parserFor(format RawFormat) formatParser {
	switch format {
	case FormatCR2:
		return cr2Parser{}
	case FormatCR3:
		return cr3Parser{}
	case FormatNEF:
		return nefParser{}
	case FormatARW:
		return arwParser{}
	case FormatDNG:
		return dngParser{}
	case FormatRAF:
		return rafParser{}
	case FormatORF:
		return orfParser{}
	case FormatRW2:
		return rw2Parser{}
	default:
		return nil
	}
}

// DetectFormat identifies which supported RAW container data belongs to, or
// FormatUnknown if none of the parsers recognize it. A buffer carrying a
// plain TIFF header but no vendor-specific signature falls back to DNG,
// the generic TIFF-based RAW format.
func DetectFormat(data []byte) RawFormat {
	for _, format := range detectionOrder {
		if parserFor(format).CanParse(data) {
			return format
		}
	}
	if _, _, ok := ParseHeader(data); ok {
		return FormatDNG
	}
	return FormatUnknown
}

// Extractor extracts embedded JPEG previews from RAW files. The zero value
// is not usable; construct one with NewExtractor.
type Extractor struct {
	opts     ExtractionOptions
	logger   *slog.Logger
	cache    *previewCache
	inFlight singleflight.Group
}

// NewExtractor builds an Extractor with opts, logging to slog's default
// logger.
func NewExtractor(opts ExtractionOptions) *Extractor {
	return NewExtractorWithLogger(opts, slog.Default())
}

// NewExtractorWithLogger builds an Extractor with an explicit logger, so
// callers embedding this package can route its diagnostics into their own
// handler. A nil logger falls back to slog's default logger.
func NewExtractorWithLogger(opts ExtractionOptions, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{opts: opts, logger: logger}
	if opts.UseCache {
		e.cache = newPreviewCache()
	}
	return e
}

// ExtractPreview reads path from disk and returns its best matching
// preview according to the Extractor's options. Concurrent calls for the
// same path are deduplicated: only one read-and-parse happens at a time,
// and every caller waiting on it receives the same result.
func (e *Extractor) ExtractPreview(ctx context.Context, path string) (ExtractionResult, error) {
	v, err, _ := e.inFlight.Do(path, func() (any, error) {
		return e.extractPreviewUncached(ctx, path)
	})
	if err != nil {
		return ExtractionResult{}, err
	}
	return v.(ExtractionResult), nil
}

func (e *Extractor) extractPreviewUncached(ctx context.Context, path string) (ExtractionResult, error) {
	requestID := uuid.NewString()

	stat, err := os.Stat(path)
	if err != nil {
		e.logger.Warn("raw preview: stat failed", "request_id", requestID, "path", path, "error", err)
		return ExtractionResult{}, newExtractError(ErrFileNotFound, path, err)
	}

	if e.cache != nil {
		if result, ok := e.cache.get(path, stat.ModTime(), stat.Size()); ok {
			e.logger.Debug("raw preview: cache hit", "request_id", requestID, "path", path)
			result.RequestID = requestID
			return result, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("raw preview: read failed", "request_id", requestID, "path", path, "error", err)
		return ExtractionResult{}, newExtractError(ErrFileAccessDenied, path, err)
	}

	result, err := e.extractFromBuffer(ctx, data, path, requestID)
	if err != nil {
		return result, err
	}

	if e.cache != nil {
		e.cache.put(path, stat.ModTime(), stat.Size(), result)
	}
	return result, nil
}

// ExtractFromBuffer runs the full detect-extract-select pipeline over an
// in-memory buffer, for callers that already have file contents (e.g. from
// an upload handler) and don't want a disk read.
func (e *Extractor) ExtractFromBuffer(ctx context.Context, data []byte, label string) (ExtractionResult, error) {
	return e.extractFromBuffer(ctx, data, label, uuid.NewString())
}

func (e *Extractor) extractFromBuffer(ctx context.Context, data []byte, label, requestID string) (ExtractionResult, error) {
	deadline := time.Now().Add(e.opts.Timeout)

	// Only very large buffers pay for the memory check at all: ordinary RAW
	// files (tens of MB) would otherwise risk a false positive against a
	// conservative MaxMemoryMB.
	if len(data) > memoryCheckThreshold && e.opts.MaxMemoryMB > 0 && uint64(len(data)) > e.opts.MaxMemoryMB*1024*1024 {
		return ExtractionResult{}, newExtractError(ErrMemoryLimitExceeded, label, nil)
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		return ExtractionResult{}, newExtractError(ErrInvalidFormat, label, nil)
	}

	if err := timeoutCheckpoint(ctx, deadline); err != nil {
		return ExtractionResult{}, newExtractError(ErrTimeoutExceeded, label, err)
	}

	parser := parserFor(format)
	previews := parser.ExtractPreviews(data)
	if e.opts.StrictValidation {
		previews = filterPreviews(previews, func(p PreviewInfo) bool {
			return InBounds(uint64(len(data)), uint64(p.Offset), uint64(p.Size))
		})
	}
	if len(previews) == 0 {
		e.logger.Debug("raw preview: no previews found", "request_id", requestID, "path", label, "format", format)
		return ExtractionResult{}, newExtractError(ErrNoPreviewsFound, label, nil)
	}

	if err := timeoutCheckpoint(ctx, deadline); err != nil {
		return ExtractionResult{}, newExtractError(ErrTimeoutExceeded, label, err)
	}

	formatBest, ok := parser.SelectBestPreview(previews)
	if !ok {
		return ExtractionResult{}, newExtractError(ErrNoPreviewsFound, label, nil)
	}
	best := refineSelection(previews, formatBest, e.opts)
	if best.Offset == 0 || best.Size == 0 {
		return ExtractionResult{}, newExtractError(ErrNoPreviewsFound, label, nil)
	}
	if !InBounds(uint64(len(data)), uint64(best.Offset), uint64(best.Size)) {
		return ExtractionResult{}, newExtractError(ErrCorruptedFile, label, fmt.Errorf("preview offset %d size %d out of bounds", best.Offset, best.Size))
	}

	jpegData := data[best.Offset : best.Offset+best.Size]
	e.logger.Debug("raw preview: extracted", "request_id", requestID, "path", label, "format", format, "type", best.Type, "size", best.Size)
	return ExtractionResult{Preview: best, Data: jpegData, Format: format, RequestID: requestID}, nil
}

// ExtractAllPreviews runs just the detection and extraction stages,
// returning every candidate preview in the order its format parser
// produced them. ExtractMediumPreview and ExtractFullPreview rely on this
// order being stable and matching each format's natural preview layout.
func (e *Extractor) ExtractAllPreviews(data []byte) ([]PreviewInfo, RawFormat, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, format, newExtractError(ErrInvalidFormat, "", nil)
	}
	previews := parserFor(format).ExtractPreviews(data)
	if len(previews) == 0 {
		return nil, format, newExtractError(ErrNoPreviewsFound, "", nil)
	}
	return previews, format, nil
}

// ExtractMediumPreview picks a medium-resolution preview by its position in
// ExtractAllPreviews's output rather than by priority, using
// formatMediumFullMapping (and, for NEF, a camera-model-aware mapping).
func (e *Extractor) ExtractMediumPreview(data []byte) (ExtractionResult, error) {
	previews, format, err := e.ExtractAllPreviews(data)
	if err != nil {
		return ExtractionResult{}, err
	}
	model := ""
	if format == FormatNEF {
		model = ExtractCameraModel(data)
	}
	preview, ok := selectMediumPreview(format, model, previews)
	if !ok {
		return ExtractionResult{}, newExtractError(ErrNoPreviewsFound, "", nil)
	}
	if !InBounds(uint64(len(data)), uint64(preview.Offset), uint64(preview.Size)) {
		return ExtractionResult{}, newExtractError(ErrCorruptedFile, "", nil)
	}
	return ExtractionResult{Preview: preview, Data: data[preview.Offset : preview.Offset+preview.Size], Format: format}, nil
}

// ExtractFullPreview is ExtractMediumPreview's counterpart for the
// full-resolution position.
func (e *Extractor) ExtractFullPreview(data []byte) (ExtractionResult, error) {
	previews, format, err := e.ExtractAllPreviews(data)
	if err != nil {
		return ExtractionResult{}, err
	}
	model := ""
	if format == FormatNEF {
		model = ExtractCameraModel(data)
	}
	preview, ok := selectFullPreview(format, model, previews)
	if !ok {
		return ExtractionResult{}, newExtractError(ErrNoPreviewsFound, "", nil)
	}
	if !InBounds(uint64(len(data)), uint64(preview.Offset), uint64(preview.Size)) {
		return ExtractionResult{}, newExtractError(ErrCorruptedFile, "", nil)
	}
	return ExtractionResult{Preview: preview, Data: data[preview.Offset : preview.Offset+preview.Size], Format: format}, nil
}

// timeoutCheckpoint reports a deadline-exceeded error once either the
// caller's context is done or the wall-clock deadline derived from
// ExtractionOptions.Timeout has passed. Called between extraction stages
// rather than inside the byte-level parsing loops, so a single checkpoint
// covers each stage's worst case without threading a context through every
// low-level helper.
func timeoutCheckpoint(ctx context.Context, deadline time.Time) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if time.Now().After(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

func filterPreviews(previews []PreviewInfo, keep func(PreviewInfo) bool) []PreviewInfo {
	out := previews[:0]
	for _, p := range previews {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
