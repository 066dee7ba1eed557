package rawpreview

import (
	"context"
	"errors"
	"testing"
)

func TestDetectFormatRejectsTooShortInput(t *testing.T) {
	data := make([]byte, 12)
	if got := DetectFormat(data); got != FormatUnknown {
		t.Fatalf("DetectFormat(12 zero bytes) = %v, want FormatUnknown", got)
	}
}

func TestExtractFromBufferRejectsMalformedInput(t *testing.T) {
	ex := NewExtractor(DefaultOptions())
	_, err := ex.ExtractFromBuffer(context.Background(), make([]byte, 12), "malformed.raw")
	if err == nil {
		t.Fatal("expected an error for a 12-byte buffer")
	}
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Code() != ErrInvalidFormat {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestExtractFromBufferStampsRequestID(t *testing.T) {
	data, _, _ := buildCR2(true)
	ex := NewExtractor(DefaultOptions())
	result, err := ex.ExtractFromBuffer(context.Background(), data, "test.cr2")
	if err != nil {
		t.Fatalf("ExtractFromBuffer: %v", err)
	}
	if result.RequestID == "" {
		t.Fatal("expected a non-empty RequestID")
	}
	if result.Format != FormatCR2 {
		t.Fatalf("Format = %v, want FormatCR2", result.Format)
	}
}

func TestExtractFromBufferEnforcesMemoryLimitAboveThreshold(t *testing.T) {
	// The memory check only applies above memoryCheckThreshold (200MiB);
	// content doesn't matter since the check runs before format detection.
	data := make([]byte, memoryCheckThreshold+1)
	opts := DefaultOptions()
	opts.MaxMemoryMB = 1
	ex := NewExtractor(opts)

	_, err := ex.ExtractFromBuffer(context.Background(), data, "big.cr2")
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Code() != ErrMemoryLimitExceeded {
		t.Fatalf("err = %v, want ErrMemoryLimitExceeded", err)
	}
}

func TestExtractFromBufferBypassesMemoryLimitBelowThreshold(t *testing.T) {
	// An ordinary-sized RAW file must never trip MaxMemoryMB, even a
	// deliberately tiny one, since the size gate comes first.
	data, _, _ := buildCR2(true)
	opts := DefaultOptions()
	opts.MaxMemoryMB = 1
	ex := NewExtractor(opts)

	_, err := ex.ExtractFromBuffer(context.Background(), data, "small.cr2")
	var extractErr *ExtractError
	if errors.As(err, &extractErr) && extractErr.Code() == ErrMemoryLimitExceeded {
		t.Fatalf("a %d-byte buffer must bypass the memory check entirely, got %v", len(data), err)
	}
}

func TestExtractFromBufferRespectsCanceledContext(t *testing.T) {
	data, _, _ := buildCR2(true)
	ex := NewExtractor(DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.ExtractFromBuffer(ctx, data, "test.cr2")
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Code() != ErrTimeoutExceeded {
		t.Fatalf("err = %v, want ErrTimeoutExceeded", err)
	}
}

func TestExtractFromBufferHonorsWallClockTimeout(t *testing.T) {
	data, _, _ := buildCR2(true)
	opts := DefaultOptions()
	opts.Timeout = 0
	ex := NewExtractor(opts)

	_, err := ex.ExtractFromBuffer(context.Background(), data, "test.cr2")
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Code() != ErrTimeoutExceeded {
		t.Fatalf("err = %v, want ErrTimeoutExceeded", err)
	}
}

func TestExtractAllPreviewsReturnsNoPreviewsFound(t *testing.T) {
	// A RAF file recognized by its magic but with a zero-length preview
	// field never yields a candidate.
	data := buildRAF(0)
	_, _, err := NewExtractor(DefaultOptions()).ExtractAllPreviews(data)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) || extractErr.Code() != ErrNoPreviewsFound {
		t.Fatalf("err = %v, want ErrNoPreviewsFound", err)
	}
}

func TestDetectFormatFallsBackToGenericTIFFAsDNG(t *testing.T) {
	data := tiffHeader(true, 8)
	data = append(data, buildIfd(true, nil, 0)...) // zero-entry IFD0, no vendor tags at all
	if got := DetectFormat(data); got != FormatDNG {
		t.Fatalf("DetectFormat(plain TIFF, no vendor signature) = %v, want FormatDNG", got)
	}
}

func TestDetectionOrderPrefersCR3OverCR2(t *testing.T) {
	data := buildCR3Ftyp()
	if got := DetectFormat(data); got != FormatCR3 {
		t.Fatalf("DetectFormat(ftyp crx) = %v, want FormatCR3", got)
	}
}
