package rawpreview

import "testing"

// buildRAF assembles a minimal Fujifilm RAF file: the 15-byte magic, then
// enough header padding to reach the fixed offset/length fields at 84/88,
// followed by the preview JPEG itself.
func buildRAF(previewSize int) []byte {
	header := make([]byte, 92)
	copy(header, rafMagic)
	previewOffset := uint32(len(header))
	putU32(header[84:88], previewOffset, false)
	putU32(header[88:92], uint32(previewSize), false)
	return append(header, validJpeg(previewSize)...)
}

func TestRAFCanParse(t *testing.T) {
	data := buildRAF(512 * 1024)
	if !(rafParser{}).CanParse(data) {
		t.Fatal("expected RAF magic to be recognized")
	}
	if (rafParser{}).CanParse(validJpeg(100)) {
		t.Fatal("plain jpeg must not be recognized as RAF")
	}
}

func TestRAFExtractSinglePreview(t *testing.T) {
	data := buildRAF(512 * 1024)
	previews := (rafParser{}).ExtractPreviews(data)
	if len(previews) != 1 {
		t.Fatalf("got %d previews, want exactly 1", len(previews))
	}
	if previews[0].Type != "RAF_Preview" || previews[0].Priority != 10 {
		t.Fatalf("unexpected preview: %+v", previews[0])
	}

	best, ok := (rafParser{}).SelectBestPreview(previews)
	if !ok || best.Size != uint32(512*1024) {
		t.Fatalf("best=%+v ok=%v", best, ok)
	}
}

func TestRAFRejectsZeroLengthPreview(t *testing.T) {
	header := make([]byte, 92)
	copy(header, rafMagic)
	// offset/length left at zero
	previews := (rafParser{}).ExtractPreviews(header)
	if previews != nil {
		t.Fatalf("expected no previews, got %v", previews)
	}
}
