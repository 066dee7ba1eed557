package rawpreview

// rw2Magic is Panasonic's RW2-specific 8-byte header; RW2 files using the
// plain TIFF magic are additionally recognized by a Panasonic make tag.
var rw2Magic = [8]byte{0x49, 0x49, 0x55, 0x00, 0x08, 0x00, 0x00, 0x00}

// rw2Parser implements Panasonic RW2's layout: a standard TIFF IFD chain
// whose previews are generally high quality and classified purely by size.
type rw2Parser struct{}

func (rw2Parser) CanParse(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if [8]byte(data[:8]) == rw2Magic {
		return true
	}

	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return false
	}
	ifd0, ok := ParseIfd(data, firstIFD, littleEndian, 0)
	if !ok {
		return false
	}
	makeTag, ok := ifd0.Tags[tiffTagMake]
	if !ok {
		return false
	}
	s, ok := tiffString(makeTag, data, littleEndian)
	return ok && len(s) >= 9 && s[:9] == "Panasonic"
}

func (p rw2Parser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) {
		return nil
	}

	var out []PreviewInfo
	for _, preview := range FindPreviews(data) {
		if preview.Offset == 0 || preview.Size == 0 {
			continue
		}
		if !InBounds(uint64(len(data)), uint64(preview.Offset), uint64(preview.Size)) {
			continue
		}
		jpegData := data[preview.Offset : preview.Offset+preview.Size]
		if !IsValidJpeg(jpegData) {
			continue
		}

		preview.Type = "RW2_Preview"
		preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
		switch {
		case preview.inTargetRange(previewMinSize, previewMaxSize):
			preview.Priority = 10
		case preview.Quality == QualityPreview:
			preview.Priority = 8
		default:
			preview.Priority = 5
		}

		out = append(out, preview)
	}
	return out
}

func (rw2Parser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectByPriorityThenLargerSize(previews)
}
