package rawpreview

// cr3PreviewUUID identifies the uuid box wrapping CR3's medium preview.
var cr3PreviewUUID = [16]byte{
	0xea, 0xf4, 0x2b, 0x5e, 0x1c, 0x98, 0x4b, 0x88,
	0xb9, 0xfb, 0xb7, 0xdc, 0x40, 0x6e, 0x4d, 0x16,
}

const cr3FullResMinSize = 1024 * 1024

// cr3Parser implements Canon CR3's ISO-BMFF container: a THMB thumbnail
// found by a raw 4CC scan, a PRVW box wrapped in a top-level uuid box, plus
// a full-resolution JPEG embedded loose inside mdat.
type cr3Parser struct{}

func (cr3Parser) CanParse(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	boxType := string(data[4:8])
	if boxType != "ftyp" {
		return false
	}
	majorBrand := string(data[8:12])
	return majorBrand == "cr3 " || majorBrand == "crx "
}

func (p cr3Parser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) {
		return nil
	}

	orientation := p.extractOrientation(data)

	var out []PreviewInfo
	if thumb, ok := p.extractThumbnail(data); ok {
		thumb.Orientation = orientation
		out = append(out, thumb)
	}
	if medium, ok := p.extractMediumPreview(data); ok {
		medium.Orientation = orientation
		out = append(out, medium)
	}
	if full, ok := p.extractFullResolutionPreview(data); ok {
		full.Orientation = orientation
		out = append(out, full)
	}
	return out
}

func (cr3Parser) extractThumbnail(data []byte) (PreviewInfo, bool) {
	thmbOffset, ok := find4CC(data, "THMB")
	if !ok || thmbOffset+20 >= len(data) {
		return PreviewInfo{}, false
	}

	dataOffset := thmbOffset + 16
	jpegStart, ok := FindStart(data[dataOffset:])
	if !ok {
		return PreviewInfo{}, false
	}
	jpegStart += dataOffset

	jpegEnd, ok := FindEnd(data, jpegStart)
	if !ok || jpegEnd <= jpegStart {
		return PreviewInfo{}, false
	}

	preview := PreviewInfo{
		Offset:   uint32(jpegStart),
		Size:     uint32(jpegEnd - jpegStart),
		Width:    160,
		Height:   120,
		IsJpeg:   true,
		Quality:  QualityThumbnail,
		Type:     "CR3_THMB",
		Priority: 1,
	}
	if !IsValidJpeg(data[preview.Offset : preview.Offset+preview.Size]) {
		return PreviewInfo{}, false
	}
	return preview, true
}

func (cr3Parser) extractMediumPreview(data []byte) (PreviewInfo, bool) {
	var result PreviewInfo
	var found bool

	WalkBoxes(data, 0, len(data), func(box Box) (descend, stop bool) {
		if box.typeString() != "uuid" || box.Size < 32 {
			return false, false
		}
		uuidStart := int(box.Offset) + 8
		if uuidStart+16 > len(data) || [16]byte(data[uuidStart:uuidStart+16]) != cr3PreviewUUID {
			return false, false
		}

		uuidDataOffset := uuidStart + 16
		preview, ok := extractPreviewFromPrvwUuid(data, uuidDataOffset, uint32(box.Size)-24)
		if ok {
			preview.Quality = QualityPreview
			preview.Type = "CR3_PRVW"
			preview.Priority = 5
			result, found = preview, true
			return false, true
		}
		return false, false
	})

	return result, found
}

// extractPreviewFromPrvwUuid parses the PRVW box nested inside the preview
// uuid payload: 8 bytes of preamble, an 8-byte PRVW box header, then a
// 16-byte internal header, then the JPEG stream itself.
func extractPreviewFromPrvwUuid(data []byte, uuidDataOffset int, uuidDataSize uint32) (PreviewInfo, bool) {
	if uuidDataOffset+16 > len(data) || uuidDataSize < 16 {
		return PreviewInfo{}, false
	}

	prvwBoxOffset := uuidDataOffset + 8
	if prvwBoxOffset+8 > len(data) {
		return PreviewInfo{}, false
	}
	prvwBoxSize := int(ReadUint32(data[prvwBoxOffset:prvwBoxOffset+4], false))
	prvwSig := string(data[prvwBoxOffset+4 : prvwBoxOffset+8])
	if prvwSig != "PRVW" || prvwBoxSize <= 20 {
		return PreviewInfo{}, false
	}

	prvwDataOffset := prvwBoxOffset + 8
	jpegSearchOffset := prvwDataOffset + 16
	if jpegSearchOffset >= len(data) {
		return PreviewInfo{}, false
	}

	jpegStart, ok := FindStart(data[jpegSearchOffset:])
	if !ok {
		return PreviewInfo{}, false
	}
	jpegStart += jpegSearchOffset

	maxJpegSize := prvwBoxSize - (jpegStart - prvwBoxOffset)
	searchLimit := prvwBoxOffset + prvwBoxSize
	if searchLimit > len(data) {
		searchLimit = len(data)
	}
	jpegEnd, ok := findEndWithin(data, jpegStart, searchLimit)
	if !ok || jpegEnd <= jpegStart || jpegEnd-jpegStart > maxJpegSize {
		return PreviewInfo{}, false
	}

	preview := PreviewInfo{
		Offset: uint32(jpegStart),
		Size:   uint32(jpegEnd - jpegStart),
		IsJpeg: true,
	}
	if !IsValidJpeg(data[preview.Offset : preview.Offset+preview.Size]) {
		return PreviewInfo{}, false
	}
	return preview, true
}

func (cr3Parser) extractFullResolutionPreview(data []byte) (PreviewInfo, bool) {
	mdat, ok := findBox(data, 0, len(data), "mdat")
	if !ok {
		return PreviewInfo{}, false
	}

	mdatDataOffset := int(mdat.DataOffset)
	searchLimit := int(mdat.Offset + mdat.Size)
	if searchLimit > len(data) {
		searchLimit = len(data)
	}
	if mdatDataOffset >= searchLimit {
		return PreviewInfo{}, false
	}

	jpegStart, ok := FindStart(data[mdatDataOffset:searchLimit])
	if !ok {
		return PreviewInfo{}, false
	}
	jpegStart += mdatDataOffset

	jpegEnd, ok := findEndWithin(data, jpegStart, searchLimit)
	if !ok || jpegEnd <= jpegStart {
		return PreviewInfo{}, false
	}

	jpegSize := uint32(jpegEnd - jpegStart)
	if jpegSize <= cr3FullResMinSize {
		return PreviewInfo{}, false
	}

	preview := PreviewInfo{
		Offset:   uint32(jpegStart),
		Size:     jpegSize,
		Width:    5472,
		Height:   3648,
		IsJpeg:   true,
		Quality:  QualityFull,
		Type:     "CR3_MDAT",
		Priority: 10,
	}
	if !IsValidJpeg(data[preview.Offset : preview.Offset+preview.Size]) {
		return PreviewInfo{}, false
	}
	return preview, true
}

// findEndWithin is FindEnd bounded to a region so a sibling box's data
// can never be misread as part of this JPEG stream.
func findEndWithin(data []byte, from, limit int) (int, bool) {
	end, ok := FindEnd(data, from)
	if !ok || end > limit {
		return 0, false
	}
	return end, true
}

func (cr3Parser) extractOrientation(data []byte) uint16 {
	cmt1Offset, ok := find4CC(data, "CMT1")
	if !ok {
		return 1
	}
	orientationOffset := cmt1Offset + 0x140
	if orientationOffset+2 > len(data) {
		return 1
	}
	orientation := ReadUint16(data[orientationOffset:orientationOffset+2], true)
	if orientation >= 1 && orientation <= 8 {
		return orientation
	}
	return 1
}

// SelectBestPreview returns the largest candidate within the target size
// range, falling back to the first candidate found when none qualify.
func (cr3Parser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	var best PreviewInfo
	for _, p := range previews {
		if p.inTargetRange(previewMinSize, previewMaxSize) && p.Size > best.Size {
			best = p
		}
	}
	if best.Size == 0 {
		best = previews[0]
	}
	return best, true
}
