package rawpreview

// orfMagicMMOR and orfMagicIIRO are Olympus's two custom TIFF-like header
// signatures; newer ORF files also validate as plain TIFF with an OLYMPUS
// make tag.
const (
	orfMagicMMOR = 0x4D4D4F52
	orfMagicIIRO = 0x4949524F
)

// orfParser implements Olympus ORF's layout: a standard TIFF IFD chain
// whose JPEG previews are classified purely by size, with no SubIFD
// special-casing.
type orfParser struct{}

func (orfParser) CanParse(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if header := ReadUint32(data[:4], false); header == orfMagicMMOR || header == orfMagicIIRO {
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
	return ok && len(s) >= 7 && s[:7] == "OLYMPUS"
}

func (p orfParser) ExtractPreviews(data []byte) []PreviewInfo {
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

		preview.Type = "ORF_Preview"
		preview.Quality = ClassifyPreview(preview.Width, preview.Height, int(preview.Size))
		if preview.inTargetRange(previewMinSize, previewMaxSize) {
			preview.Priority = 10
		} else {
			preview.Priority = 6
		}

		out = append(out, preview)
	}
	return out
}

func (orfParser) SelectBestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	return selectByPriorityThenLargerSize(previews)
}
