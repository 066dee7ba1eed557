package rawpreview

// rafMagic is the 15-byte ASCII signature every Fujifilm RAF file begins
// with (the 16th byte varies by camera generation).
const rafMagic = "FUJIFILMCCD-RAW"

// rafParser implements Fujifilm RAF's fixed-offset layout: unlike every
// other supported format, RAF carries no IFD or box structure for its
// preview — the JPEG's offset and length sit at fixed big-endian offsets
// in the file header.
type rafParser struct{}

func (rafParser) CanParse(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	return string(data[:15]) == rafMagic
}

func (p rafParser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) || len(data) < 100 || len(data) < 92 {
		return nil
	}

	offset := ReadUint32(data[84:88], false)
	length := ReadUint32(data[88:92], false)
	if offset == 0 || length == 0 || !InBounds(uint64(len(data)), uint64(offset), uint64(length)) {
		return nil
	}

	jpegData := data[offset : offset+length]
	if !IsValidJpeg(jpegData) {
		return nil
	}

	preview := PreviewInfo{
		Offset:  offset,
		Size:    length,
		IsJpeg:  true,
		Quality: ClassifyPreview(0, 0, int(length)),
		Type:    "RAF_Preview",
	}
	if preview.inTargetRange(previewMinSize, previewMaxSize) {
		preview.Priority = 10
	} else {
		preview.Priority = 7
	}
	return []PreviewInfo{preview}
}

// SelectBestPreview has nothing to choose from: RAF ever produces at most
// one candidate.
func (rafParser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	return previews[0], true
}
