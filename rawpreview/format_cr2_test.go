package rawpreview

import "testing"

// buildCR2 assembles a minimal two-IFD CR2 file: IFD0 carries the
// full-size JPEG preview, IFD1 a small thumbnail.
func buildCR2(le bool) ([]byte, int, int) {
	header := tiffHeader(le, 10)
	header = append(header, 'C', 'R') // CR2's extra 2-byte vendor marker

	previewSize := 1 * 1024 * 1024
	thumbSize := 20 * 1024

	ifd0Len := 2 + 12*4 + 4
	ifd1Len := 2 + 12*2 + 4
	previewOffset := uint32(10 + ifd0Len + ifd1Len)
	thumbOffset := previewOffset + uint32(previewSize)

	ifd0 := buildIfd(le, [][]byte{
		tiffTagBytes(le, tiffTagStripOffsets, tiffTypeLong, 1, longVal(le, previewOffset)),
		tiffTagBytes(le, tiffTagStripByteCounts, tiffTypeLong, 1, longVal(le, uint32(previewSize))),
		tiffTagBytes(le, tiffTagCompression, tiffTypeShort, 1, shortVal(le, 6)),
		tiffTagBytes(le, tiffTagNewSubfileType, tiffTypeLong, 1, longVal(le, 0)),
	}, uint32(10+ifd0Len))

	ifd1 := buildIfd(le, [][]byte{
		tiffTagBytes(le, tiffTagStripOffsets, tiffTypeLong, 1, longVal(le, thumbOffset)),
		tiffTagBytes(le, tiffTagStripByteCounts, tiffTypeLong, 1, longVal(le, uint32(thumbSize))),
	}, 0)

	data := append(header, ifd0...)
	data = append(data, ifd1...)
	data = append(data, validJpeg(previewSize)...)
	data = append(data, validJpeg(thumbSize)...)
	return data, previewSize, thumbSize
}

func TestCR2CanParse(t *testing.T) {
	data, _, _ := buildCR2(true)
	if !(cr2Parser{}).CanParse(data) {
		t.Fatal("expected CR2 signature to be recognized")
	}
	if (cr2Parser{}).CanParse(validJpeg(100)) {
		t.Fatal("plain jpeg must not be recognized as CR2")
	}
}

func TestCR2ExtractAndSelectBestPreview(t *testing.T) {
	data, previewSize, thumbSize := buildCR2(true)
	parser := cr2Parser{}

	previews := parser.ExtractPreviews(data)
	if len(previews) != 2 {
		t.Fatalf("got %d previews, want 2", len(previews))
	}

	best, ok := parser.SelectBestPreview(previews)
	if !ok {
		t.Fatal("expected a best preview")
	}
	if int(best.Size) != previewSize {
		t.Fatalf("best.Size = %d, want the full preview (%d), not the %d-byte thumbnail", best.Size, previewSize, thumbSize)
	}
	if best.Quality != QualityPreview {
		t.Fatalf("best.Quality = %v", best.Quality)
	}
}

func TestCR2RejectsTruncatedPreview(t *testing.T) {
	data, _, _ := buildCR2(true)
	// Truncate the file right after IFD1, before either preview's bytes.
	truncated := data[:10+(2+12*4+4)+(2+12*2+4)]
	previews := (cr2Parser{}).ExtractPreviews(truncated)
	if len(previews) != 0 {
		t.Fatalf("got %d previews from truncated data, want 0", len(previews))
	}
}
