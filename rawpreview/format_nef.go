package rawpreview

const (
	nikonTagJpegFromRawStart  = 0x0201
	nikonTagJpegFromRawLength = 0x0202
)

// nefParser implements Nikon NEF's layout: the full-size JPEG preview lives
// in a SubIFD addressed by JpgFromRawStart/JpgFromRawLength, the same tag
// numbers TIFF's generic JpegIFOffset/JpegIFLength use for the legacy
// thumbnail location.
type nefParser struct{}

func (nefParser) CanParse(data []byte) bool {
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
	return ok && len(s) >= 5 && s[:5] == "NIKON"
}

func (p nefParser) ExtractPreviews(data []byte) []PreviewInfo {
	if !p.CanParse(data) {
		return nil
	}

	orientation := ExtractOrientation(data)

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
		case preview.IfdIndex == -1:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = subCounter.name("NEF_SubIFD")
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
			preview.Type = "NEF_IFD1"
			preview.Priority = 2
		case preview.IfdIndex == 0:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "NEF_IFD0"
			preview.Priority = 7
		default:
			preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
			preview.Type = "NEF_IFD" + itoaIfdIndex(preview.IfdIndex)
			preview.Priority = 3
		}

		preview.Orientation = orientation
		out = append(out, preview)
	}

	return p.extractNikonSpecificPreviews(data, out, orientation)
}

// extractNikonSpecificPreviews walks every top-level IFD's SubIFDs a second
// time looking specifically at JpgFromRawStart/JpgFromRawLength, since that
// pair can be present on a SubIFD that FindPreviews's generic
// StripOffsets/JpegIF handling already visited for a different tag. Only
// the FIRST SubIFD at a given level is caught by the IfdIndex == -1 case
// above; SubIFDs after it fall through to the default branch by design,
// mirroring the -1-i indexing FindPreviews assigns.
func (nefParser) extractNikonSpecificPreviews(data []byte, previews []PreviewInfo, orientation uint16) []PreviewInfo {
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

		if subTag, hasSub := ifd.Tags[tiffTagSubIfds]; hasSub {
			for i, subOffset := range TagValues32(subTag, data, littleEndian) {
				subIfd, ok := ParseIfd(data, subOffset, littleEndian, -1-i)
				if !ok {
					continue
				}
				startTag, hasStart := subIfd.Tags[nikonTagJpegFromRawStart]
				lenTag, hasLen := subIfd.Tags[nikonTagJpegFromRawLength]
				if !hasStart || !hasLen {
					continue
				}
				jpegOffset := TagValue32(startTag, data, littleEndian)
				jpegLength := TagValue32(lenTag, data, littleEndian)
				if jpegOffset == 0 || jpegLength == 0 {
					continue
				}
				if !InBounds(uint64(len(data)), uint64(jpegOffset), uint64(jpegLength)) {
					continue
				}
				if !IsValidJpeg(data[jpegOffset : jpegOffset+jpegLength]) {
					continue
				}
				if seen(jpegOffset, jpegLength) {
					continue
				}

				preview := PreviewInfo{
					Offset:      jpegOffset,
					Size:        jpegLength,
					IsJpeg:      true,
					IfdIndex:    -1 - i,
					Quality:     ClassifyPreview(0, 0, int(jpegLength)),
					Orientation: orientation,
				}
				if preview.inTargetRange(previewMinSize, previewMaxSize) {
					preview.Priority = 12
				} else {
					preview.Priority = 7
				}
				previews = append(previews, preview)
			}
		}

		offset = ifd.NextOffset
	}

	return previews
}

func (nefParser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectByPriorityThenTargetRange(previews)
}

// ExtractCameraModel reads the Model tag (0x0110) from IFD0, used by
// Extractor.ExtractMediumPreview/ExtractFullPreview to pick the right
// Nikon body-specific preview position.
func ExtractCameraModel(data []byte) string {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return "UNKNOWN"
	}
	ifd0, ok := ParseIfd(data, firstIFD, littleEndian, 0)
	if !ok {
		return "UNKNOWN"
	}
	modelTag, ok := ifd0.Tags[tiffTagModel]
	if !ok {
		return "UNKNOWN"
	}
	s, ok := tiffString(modelTag, data, littleEndian)
	if !ok {
		return "UNKNOWN"
	}
	return s
}
