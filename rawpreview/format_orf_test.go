package rawpreview

import "testing"

// buildORF assembles a minimal Olympus ORF file as a plain TIFF chain: IFD0
// carries the OLYMPUS make tag plus a small preview, IFD1 a larger one.
func buildORF(le bool, smallSize, largeSize int) []byte {
	const (
		ifd0Offset = 8
		ifd0Len    = 2 + 12*3 + 4 // Make, StripOffsets, StripByteCounts
		ifd1Len    = 2 + 12*2 + 4 // StripOffsets, StripByteCounts
	)
	ifd1Offset := uint32(ifd0Offset + ifd0Len)
	extraOffset := ifd1Offset + ifd1Len

	makeEntry, makeExtra := asciiTagValue(le, tiffTagMake, "OLYMPUS CORPORATION", extraOffset)
	smallOffset := extraOffset + uint32(len(makeExtra))
	largeOffset := smallOffset + uint32(smallSize)

	ifd0 := buildIfd(le, [][]byte{
		makeEntry,
		tiffTagBytes(le, tiffTagStripOffsets, tiffTypeLong, 1, longVal(le, smallOffset)),
		tiffTagBytes(le, tiffTagStripByteCounts, tiffTypeLong, 1, longVal(le, uint32(smallSize))),
	}, ifd1Offset)

	ifd1 := buildIfd(le, [][]byte{
		tiffTagBytes(le, tiffTagStripOffsets, tiffTypeLong, 1, longVal(le, largeOffset)),
		tiffTagBytes(le, tiffTagStripByteCounts, tiffTypeLong, 1, longVal(le, uint32(largeSize))),
	}, 0)

	data := tiffHeader(le, ifd0Offset)
	data = append(data, ifd0...)
	data = append(data, ifd1...)
	data = append(data, makeExtra...)
	data = append(data, validJpeg(smallSize)...)
	data = append(data, validJpeg(largeSize)...)
	return data
}

func TestORFCanParseViaMakeTag(t *testing.T) {
	data := buildORF(true, 30*1024, 1200*1024)
	if !(orfParser{}).CanParse(data) {
		t.Fatal("expected OLYMPUS make tag to be recognized")
	}
}

func TestORFExtractAndSelectBestPreview(t *testing.T) {
	data := buildORF(true, 30*1024, 1200*1024)
	parser := orfParser{}

	previews := parser.ExtractPreviews(data)
	if len(previews) != 2 {
		t.Fatalf("got %d previews, want 2", len(previews))
	}

	best, ok := parser.SelectBestPreview(previews)
	if !ok || int(best.Size) != 1200*1024 {
		t.Fatalf("best=%+v ok=%v, want the larger 1200KiB preview", best, ok)
	}
	if best.Priority != 10 {
		t.Fatalf("best.Priority = %d, want 10 (in target range)", best.Priority)
	}
}
