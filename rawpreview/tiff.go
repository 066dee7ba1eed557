package rawpreview

import "strconv"

const (
	tiffTagImageWidth       = 0x0100
	tiffTagImageHeight      = 0x0101
	tiffTagMake             = 0x010F
	tiffTagModel            = 0x0110
	tiffTagStripOffsets     = 0x0111
	tiffTagOrientation      = 0x0112
	tiffTagStripByteCounts  = 0x0117
	tiffTagCompression      = 0x0103
	tiffTagSoftware         = 0x0131
	tiffTagSubIfds          = 0x014A
	tiffTagNewSubfileType   = 0x00FE
	tiffTagJpegIFOffset     = 0x0201
	tiffTagJpegIFLength     = 0x0202
)

const (
	tiffTypeByte     = 1
	tiffTypeASCII    = 2
	tiffTypeShort    = 3
	tiffTypeLong     = 4
	tiffTypeRational = 5
)

// maxIfdWalkDepth bounds every IFD chain walk in this package, so a
// malformed or adversarial file cannot force an unbounded walk. FindPreviews
// also stops at an offset it has already visited; the ARW and NEF walks do
// not track visited offsets and rely on this cap alone.
const maxIfdWalkDepth = 16

func tiffTypeSize(t uint16) uint32 {
	switch t {
	case tiffTypeByte, tiffTypeASCII:
		return 1
	case tiffTypeShort:
		return 2
	case tiffTypeLong:
		return 4
	case tiffTypeRational:
		return 8
	default:
		return 0
	}
}

// ParseHeader reads the 8-byte TIFF header and returns the byte order and
// the offset of the first IFD.
func ParseHeader(data []byte) (littleEndian bool, firstIFD uint32, ok bool) {
	if len(data) < 8 {
		return false, 0, false
	}
	littleEndian, ok = DetectEndianness(data)
	if !ok {
		return false, 0, false
	}
	if ReadUint16(data[2:4], littleEndian) != 0x002A {
		return false, 0, false
	}
	return littleEndian, ReadUint32(data[4:8], littleEndian), true
}

func parseTiffTag(data []byte, offset uint32, littleEndian bool) (TiffTag, bool) {
	if uint64(offset)+12 > uint64(len(data)) {
		return TiffTag{}, false
	}
	tag := TiffTag{
		ID:    ReadUint16(data[offset:offset+2], littleEndian),
		Type:  ReadUint16(data[offset+2:offset+4], littleEndian),
		Count: ReadUint32(data[offset+4:offset+8], littleEndian),
	}
	copy(tag.ValueOrOffset[:], data[offset+8:offset+12])
	return tag, true
}

// ParseIfd parses the IFD directory at offset: a u16 entry count, that many
// 12-byte tag entries, then a u32 next-IFD offset.
func ParseIfd(data []byte, offset uint32, littleEndian bool, index int) (TiffIfd, bool) {
	if uint64(offset)+2 > uint64(len(data)) {
		return TiffIfd{}, false
	}
	numEntries := ReadUint16(data[offset:offset+2], littleEndian)
	entriesEnd := uint64(offset) + 2 + uint64(numEntries)*12
	if entriesEnd+4 > uint64(len(data)) {
		return TiffIfd{}, false
	}

	ifd := TiffIfd{Tags: make(map[uint16]TiffTag, numEntries), Index: index}
	for i := uint16(0); i < numEntries; i++ {
		entryOffset := offset + 2 + uint32(i)*12
		tag, ok := parseTiffTag(data, entryOffset, littleEndian)
		if !ok {
			continue
		}
		if tag.ID != 0 {
			ifd.Tags[tag.ID] = tag
		}
	}
	ifd.NextOffset = ReadUint32(data[entriesEnd:entriesEnd+4], littleEndian)
	return ifd, true
}

// TagValue32 decodes a tag's value as a single uint32. When the value's
// total byte size fits in the 4-byte ValueOrOffset field, it is decoded
// directly from those raw bytes per the container's endianness.
func TagValue32(tag TiffTag, data []byte, littleEndian bool) uint32 {
	typeSize := tiffTypeSize(tag.Type)
	if typeSize == 0 {
		return 0
	}
	totalSize := typeSize * tag.Count
	if totalSize <= 4 {
		switch tag.Type {
		case tiffTypeShort:
			return uint32(ReadUint16(tag.ValueOrOffset[:2], littleEndian))
		case tiffTypeLong:
			return ReadUint32(tag.ValueOrOffset[:4], littleEndian)
		case tiffTypeByte:
			return uint32(tag.ValueOrOffset[0])
		}
		return 0
	}
	offset := ReadUint32(tag.ValueOrOffset[:4], littleEndian)
	if !InBounds(uint64(len(data)), uint64(offset), uint64(typeSize)) {
		return 0
	}
	switch tag.Type {
	case tiffTypeShort:
		return uint32(ReadUint16(data[offset:offset+2], littleEndian))
	case tiffTypeLong:
		return ReadUint32(data[offset:offset+4], littleEndian)
	}
	return 0
}

// TagValues32 decodes every element of an array-valued tag as uint32.
func TagValues32(tag TiffTag, data []byte, littleEndian bool) []uint32 {
	typeSize := tiffTypeSize(tag.Type)
	if typeSize == 0 {
		return nil
	}
	totalSize := typeSize * tag.Count
	var src []byte
	if totalSize <= 4 {
		src = tag.ValueOrOffset[:]
	} else {
		offset := ReadUint32(tag.ValueOrOffset[:4], littleEndian)
		if !InBounds(uint64(len(data)), uint64(offset), uint64(totalSize)) {
			return nil
		}
		src = data[offset : offset+totalSize]
	}
	values := make([]uint32, 0, tag.Count)
	for i := uint32(0); i < tag.Count; i++ {
		switch tag.Type {
		case tiffTypeShort:
			if int(i*2+2) > len(src) {
				return values
			}
			values = append(values, uint32(ReadUint16(src[i*2:i*2+2], littleEndian)))
		case tiffTypeLong:
			if int(i*4+4) > len(src) {
				return values
			}
			values = append(values, ReadUint32(src[i*4:i*4+4], littleEndian))
		case tiffTypeByte:
			if int(i+1) > len(src) {
				return values
			}
			values = append(values, uint32(src[i]))
		}
	}
	return values
}

// tiffString decodes an ASCII tag's value, trimming the trailing NUL and any
// trailing padding spaces. ok is false if the tag is not ASCII or its bytes
// are out of bounds.
func tiffString(tag TiffTag, data []byte, littleEndian bool) (string, bool) {
	if tag.Type != tiffTypeASCII || tag.Count == 0 {
		return "", false
	}
	var raw []byte
	if tag.Count <= 4 {
		raw = tag.ValueOrOffset[:tag.Count]
	} else {
		offset := ReadUint32(tag.ValueOrOffset[:4], littleEndian)
		if !InBounds(uint64(len(data)), uint64(offset), uint64(tag.Count)) {
			return "", false
		}
		raw = data[offset : offset+tag.Count]
	}
	s := string(raw)
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s, true
}

func extractPreviewFromIfd(data []byte, ifd TiffIfd, littleEndian bool, ifdIndex int) (PreviewInfo, bool) {
	preview := PreviewInfo{IfdIndex: ifdIndex}

	if off, hasOff := ifd.Tags[tiffTagStripOffsets]; hasOff {
		if cnt, hasCnt := ifd.Tags[tiffTagStripByteCounts]; hasCnt {
			offsets := TagValues32(off, data, littleEndian)
			counts := TagValues32(cnt, data, littleEndian)
			if len(offsets) > 0 && len(counts) > 0 && len(offsets) == len(counts) {
				preview.Offset = offsets[0]
				preview.Size = counts[0]
			}
		}
	}

	if off, hasOff := ifd.Tags[tiffTagJpegIFOffset]; hasOff {
		if ln, hasLn := ifd.Tags[tiffTagJpegIFLength]; hasLn {
			preview.Offset = TagValue32(off, data, littleEndian)
			preview.Size = TagValue32(ln, data, littleEndian)
		}
	}

	if w, ok := ifd.Tags[tiffTagImageWidth]; ok {
		preview.Width = TagValue32(w, data, littleEndian)
	}
	if h, ok := ifd.Tags[tiffTagImageHeight]; ok {
		preview.Height = TagValue32(h, data, littleEndian)
	}
	if c, ok := ifd.Tags[tiffTagCompression]; ok {
		compression := TagValue32(c, data, littleEndian)
		preview.IsJpeg = compression == 6 || compression == 7
	}
	if s, ok := ifd.Tags[tiffTagNewSubfileType]; ok {
		preview.SubfileType = TagValue32(s, data, littleEndian)
	}

	return preview, preview.Offset != 0 && preview.Size > 0
}

// FindPreviews walks every IFD reachable from the TIFF header, plus every
// SubIFD referenced by tag 0x014A within them, collecting candidate
// previews. The walk is cycle-safe and depth-capped (maxIfdWalkDepth).
func FindPreviews(data []byte) []PreviewInfo {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return nil
	}

	var previews []PreviewInfo
	visited := make(map[uint32]bool)
	offset := firstIFD
	for ifdIndex := 0; offset != 0 && ifdIndex < maxIfdWalkDepth; ifdIndex++ {
		if visited[offset] || uint64(offset) >= uint64(len(data)) {
			break
		}
		visited[offset] = true

		ifd, ok := ParseIfd(data, offset, littleEndian, ifdIndex)
		if !ok {
			break
		}

		if preview, found := extractPreviewFromIfd(data, ifd, littleEndian, ifdIndex); found {
			previews = append(previews, preview)
		}

		if subTag, hasSub := ifd.Tags[tiffTagSubIfds]; hasSub {
			subOffsets := TagValues32(subTag, data, littleEndian)
			for i, subOffset := range subOffsets {
				if i >= maxIfdWalkDepth || visited[subOffset] {
					continue
				}
				visited[subOffset] = true
				subIfd, ok := ParseIfd(data, subOffset, littleEndian, -1-i)
				if !ok {
					continue
				}
				if preview, found := extractPreviewFromIfd(data, subIfd, littleEndian, -1-i); found {
					previews = append(previews, preview)
				}
			}
		}

		offset = ifd.NextOffset
	}

	return previews
}

// ExtractOrientation reads the EXIF orientation tag (0x0112) from IFD0,
// defaulting to 1 (normal) if absent, unreadable, or outside 1-8.
func ExtractOrientation(data []byte) uint16 {
	littleEndian, firstIFD, ok := ParseHeader(data)
	if !ok {
		return 1
	}
	ifd0, ok := ParseIfd(data, firstIFD, littleEndian, 0)
	if !ok {
		return 1
	}
	tag, ok := ifd0.Tags[tiffTagOrientation]
	if !ok {
		return 1
	}
	orientation := uint16(TagValue32(tag, data, littleEndian))
	if orientation >= 1 && orientation <= 8 {
		return orientation
	}
	return 1
}

// subIfdCounter assigns stable, sequential names ("NEF_SubIFD0",
// "NEF_SubIFD1", ...) to previews found in SubIFDs during a single
// extraction. It is a value owned by the caller, created fresh per call to
// ExtractPreviews, so numbering never leaks across extractions.
type subIfdCounter struct{ next int }

func (c *subIfdCounter) name(prefix string) string {
	n := c.next
	c.next++
	return prefix + strconv.Itoa(n)
}
