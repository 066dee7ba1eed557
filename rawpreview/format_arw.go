package rawpreview

const (
	sonyTagSr2Private = 0x7200
	sonyTagSr2SubIfd  = 0x7201
)

// arwParser implements Sony ARW's layout: standard TIFF previews plus two
// Sony-specific extensions, SR2Private (an opaque blob scanned for raw JPEG
// markers) and SR2SubIFD (ordinary SubIFDs reached through a private tag
// rather than 0x014A).
type arwParser struct{}

func (arwParser) CanParse(data []byte) bool {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return false
	}
	ifd0, ok := ParseIfd(data, firstIFD, littleEndian, 0)
	if !ok {
		return false
	}
	if makeTag, ok := ifd0.Tags[tiffTagMake]; ok {
		if s, ok := tiffString(makeTag, data, littleEndian); ok && len(s) >= 4 && s[:4] == "SONY" {
			return true
		}
	}
	_, hasSr2 := ifd0.Tags[sonyTagSr2Private]
	return hasSr2
}

func (p arwParser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) {
		return nil
	}

	orientation := p.extractOrientation(data)

	var out []PreviewInfo
	subCounter := &subIfdCounter{}
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
		case preview.SubfileType == 1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "ARW_Preview"
			switch {
			case preview.inTargetRange(previewMinSize, previewMaxSize):
				preview.Priority = 10
			case preview.Quality == QualityPreview:
				preview.Priority = 8
			default:
				preview.Priority = 5
			}
		case preview.IfdIndex == 1:
			preview.Quality = QualityThumbnail
			preview.Type = "ARW_IFD1"
			preview.Priority = 2
		case preview.IfdIndex <= -1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = subCounter.name("ARW_SubIFD")
			if preview.Size >= 1024*1024 {
				preview.Priority = 9
			} else {
				preview.Priority = 6
			}
		case preview.IfdIndex == 0:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "ARW_IFD0"
			preview.Priority = 7
		default:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "ARW_IFD" + itoaIfdIndex(preview.IfdIndex)
			preview.Priority = 4
		}

		preview.Orientation = orientation
		out = append(out, preview)
	}

	out = p.extractSr2Previews(data, out, orientation)
	return out
}

// extractSr2Previews walks every top-level IFD looking for Sony's
// SR2Private and SR2SubIFD tags, adding any JPEG previews found there that
// aren't already present at the same offset and size.
func (arwParser) extractSr2Previews(data []byte, previews []PreviewInfo, orientation uint16) []PreviewInfo {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return previews
	}

	seen := func(offset, size uint32) bool {
		for _, p := range previews {
			if p.Offset == offset && p.Size == size {
				return true
			}
		}
		return false
	}

	offset := firstIFD
	for depth := 0; offset != 0 && uint64(offset) < uint64(len(data)) && depth < maxIfdWalkDepth; depth++ {
		ifd, ok := ParseIfd(data, offset, littleEndian, depth)
		if !ok {
			break
		}

		if sr2, hasSr2 := ifd.Tags[sonyTagSr2Private]; hasSr2 {
			sr2Offset := TagValue32(sr2, data, littleEndian)
			sr2Length := sr2.Count
			if sr2Offset > 0 && sr2Length > 0 && InBounds(uint64(len(data)), uint64(sr2Offset), uint64(sr2Length)) {
				for _, found := range scanForJpegs(data, sr2Offset, sr2Length) {
					if seen(found.Offset, found.Size) {
						continue
					}
					found.Type = "ARW_SR2Private"
					found.Orientation = orientation
					if found.inTargetRange(previewMinSize, previewMaxSize) {
						found.Priority = 12
					} else {
						found.Priority = 8
					}
					previews = append(previews, found)
				}
			}
		}

		if subTag, hasSub := ifd.Tags[sonyTagSr2SubIfd]; hasSub {
			for _, subOffset := range TagValues32(subTag, data, littleEndian) {
				if subOffset == 0 || uint64(subOffset) >= uint64(len(data)) {
					continue
				}
				subIfd, ok := ParseIfd(data, subOffset, littleEndian, -1)
				if !ok {
					continue
				}
				offTag, hasOff := subIfd.Tags[tiffTagStripOffsets]
				cntTag, hasCnt := subIfd.Tags[tiffTagStripByteCounts]
				if !hasOff || !hasCnt {
					continue
				}
				offsets := TagValues32(offTag, data, littleEndian)
				counts := TagValues32(cntTag, data, littleEndian)
				if len(offsets) == 0 || len(counts) == 0 {
					continue
				}
				jpegOffset, jpegSize := offsets[0], counts[0]
				if !InBounds(uint64(len(data)), uint64(jpegOffset), uint64(jpegSize)) {
					continue
				}
				if !IsValidJpeg(data[jpegOffset : jpegOffset+jpegSize]) {
					continue
				}
				if seen(jpegOffset, jpegSize) {
					continue
				}
				found := PreviewInfo{
					Offset:      jpegOffset,
					Size:        jpegSize,
					IsJpeg:      true,
					IfdIndex:    -10,
					Quality:     ClassifyPreview(0, 0, int(jpegSize)),
					Type:        "ARW_SR2SubIFD",
					Orientation: orientation,
				}
				if found.inTargetRange(previewMinSize, previewMaxSize) {
					found.Priority = 11
				} else {
					found.Priority = 7
				}
				previews = append(previews, found)
			}
		}

		offset = ifd.NextOffset
	}

	return previews
}

// scanForJpegs searches an opaque region for embedded JPEG streams,
// since SR2Private's internal layout is proprietary and otherwise
// unparseable.
func scanForJpegs(data []byte, regionOffset, regionLength uint32) []PreviewInfo {
	var found []PreviewInfo
	region := data[regionOffset : regionOffset+regionLength]
	searchFrom := 0
	for searchFrom+1 < len(region) {
		start, ok := FindStart(region[searchFrom:])
		if !ok {
			break
		}
		start += searchFrom
		end, ok := FindEnd(data, int(regionOffset)+start)
		if !ok {
			break
		}
		jpegOffset := regionOffset + uint32(start)
		jpegSize := uint32(end) - jpegOffset
		if IsValidJpeg(data[jpegOffset : jpegOffset+jpegSize]) {
			found = append(found, PreviewInfo{
				Offset:   jpegOffset,
				Size:     jpegSize,
				IsJpeg:   true,
				IfdIndex: -20,
				Quality:  ClassifyPreview(0, 0, int(jpegSize)),
			})
		}
		searchFrom = start + 1
	}
	return found
}

func (arwParser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectArwPreview(previews)
}

// extractOrientation mirrors ExtractOrientation but additionally walks
// SubIFDs and IFD1, since Sony sometimes only sets orientation away from
// IFD0.
func (arwParser) extractOrientation(data []byte) uint16 {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return 1
	}

	offset := firstIFD
	for ifdIndex := 0; offset != 0 && uint64(offset) < uint64(len(data)) && ifdIndex < maxIfdWalkDepth; ifdIndex++ {
		ifd, ok := ParseIfd(data, offset, littleEndian, ifdIndex)
		if !ok {
			break
		}

		if tag, ok := ifd.Tags[tiffTagOrientation]; ok {
			orientation := uint16(TagValue32(tag, data, littleEndian))
			if orientation >= 1 && orientation <= 8 {
				if ifdIndex == 0 {
					return orientation
				}
				if ifdIndex == 1 && orientation != 1 {
					return orientation
				}
			}
		}

		if subTag, hasSub := ifd.Tags[tiffTagSubIfds]; hasSub {
			for _, subOffset := range TagValues32(subTag, data, littleEndian) {
				if subOffset == 0 || uint64(subOffset) >= uint64(len(data)) {
					continue
				}
				subIfd, ok := ParseIfd(data, subOffset, littleEndian, -1)
				if !ok {
					continue
				}
				if orientTag, ok := subIfd.Tags[tiffTagOrientation]; ok {
					subOrientation := uint16(TagValue32(orientTag, data, littleEndian))
					if subOrientation >= 1 && subOrientation <= 8 && subOrientation != 1 {
						return subOrientation
					}
				}
			}
		}

		offset = ifd.NextOffset
	}

	return 1
}
