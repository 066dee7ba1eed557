package rawpreview

// dngParser implements Adobe DNG's preview layout: a SubIFD holding the
// standard-conforming preview alongside IFD0's thumbnail, identified either
// by the DNGVersion tag (0xC612) or by an Adobe software tag.
type dngParser struct{}

func (dngParser) CanParse(data []byte) bool {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return false
	}
	ifd0, ok := ParseIfd(data, firstIFD, littleEndian, 0)
	if !ok {
		return false
	}
	if _, hasDngVersion := ifd0.Tags[0xC612]; hasDngVersion {
		return true
	}
	if software, ok := ifd0.Tags[tiffTagSoftware]; ok {
		if s, ok := tiffString(software, data, littleEndian); ok && len(s) >= 5 && s[:5] == "Adobe" {
			return true
		}
	}
	return false
}

func (p dngParser) ExtractPreviews(data []byte) []PreviewInfo {
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

		preview.Type = "DNG_Preview"
		switch {
		case preview.SubfileType == 1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			if preview.inTargetRange(previewMinSize, previewMaxSize) {
				preview.Priority = 10
			} else {
				preview.Priority = 8
			}
		case preview.IfdIndex <= -1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Priority = 9
		case preview.IfdIndex == 0:
			preview.Quality = QualityThumbnail
			preview.Priority = 2
		default:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Priority = 5
		}

		out = append(out, preview)
	}
	return out
}

func (dngParser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectByPriorityThenLargerSize(previews)
}
