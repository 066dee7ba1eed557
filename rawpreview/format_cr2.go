package rawpreview

// cr2Parser implements CR2's 4-IFD layout: IFD0 holds the full-size JPEG
// preview, IFD1 a 160x120 thumbnail, and IFD2/IFD3 the reduced and full
// resolution RAW data.
type cr2Parser struct{}

func (cr2Parser) CanParse(data []byte) bool {
	if len(data) < 10 {
		return false
	}
	littleEndian, ok := DetectEndianness(data)
	if !ok {
		return false
	}
	if ReadUint16(data[2:4], littleEndian) != 0x002A {
		return false
	}
	return ReadUint16(data[8:10], littleEndian) == 0x5243 // "CR"
}

func (p cr2Parser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) {
		return nil
	}

	var out []PreviewInfo
	counter := &subIfdCounter{}
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

		switch {
		case preview.IfdIndex == 0:
			preview.Quality = QualityPreview
			preview.Type = "CR2_IFD0"
			if preview.inTargetRange(previewMinSize, previewMaxSize) {
				preview.Priority = 10
			} else {
				preview.Priority = 5
			}
		case preview.IfdIndex == 1:
			preview.Quality = QualityThumbnail
			preview.Type = "CR2_IFD1"
			preview.Priority = 1
		case preview.IfdIndex <= -1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = counter.name("CR2_SubIFD")
			preview.Priority = 3
		default:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "CR2_IFD" + itoaIfdIndex(preview.IfdIndex)
			preview.Priority = 3
		}

		out = append(out, preview)
	}
	return out
}

func (cr2Parser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectByPriorityThenTargetRange(previews)
}
