package rawpreview

// WalkBoxes walks top-level ISO-BMFF boxes in data[from:to], calling visit
// for each one. visit returns descend (whether to recurse into the box's
// payload as a nested box list) and stop (whether to end the walk
// entirely). Box headers are 8 bytes (big-endian size, 4-byte type); size==1
// means a 64-bit extended size follows immediately, and size==0 means the
// box runs to the end of the enclosing range.
func WalkBoxes(data []byte, from, to int, visit func(Box) (descend, stop bool)) {
	if to > len(data) {
		to = len(data)
	}
	offset := from
	for offset+8 <= to {
		box, headerSize, ok := readBoxHeader(data, offset, to)
		if !ok {
			return
		}
		box.Offset = uint64(offset)
		box.DataOffset = uint64(offset + headerSize)

		descend, stop := visit(box)
		if stop {
			return
		}
		if descend {
			childEnd := int(box.Offset + box.Size)
			if childEnd > to {
				childEnd = to
			}
			WalkBoxes(data, int(box.DataOffset), childEnd, visit)
		}

		if box.Size < uint64(headerSize) {
			return
		}
		offset += int(box.Size)
	}
}

func readBoxHeader(data []byte, offset, limit int) (Box, int, bool) {
	if offset+8 > limit {
		return Box{}, 0, false
	}
	size32, ok := readBigEndianUint32At(data, offset)
	if !ok {
		return Box{}, 0, false
	}
	var box Box
	copy(box.Type[:], data[offset+4:offset+8])
	headerSize := 8

	switch {
	case size32 == 1:
		if offset+16 > limit {
			return Box{}, 0, false
		}
		hi, _ := readBigEndianUint32At(data, offset+8)
		lo, _ := readBigEndianUint32At(data, offset+12)
		box.Size = uint64(hi)<<32 | uint64(lo)
		headerSize = 16
	case size32 == 0:
		box.Size = uint64(limit - offset)
	default:
		box.Size = uint64(size32)
	}

	if box.Size > uint64(limit-offset) {
		box.Size = uint64(limit - offset)
	}
	return box, headerSize, true
}

// findBox scans [from,to) for the first top-level box whose type matches
// typ, without descending into children.
func findBox(data []byte, from, to int, typ string) (Box, bool) {
	var found Box
	var ok bool
	WalkBoxes(data, from, to, func(b Box) (bool, bool) {
		if b.typeString() == typ {
			found = b
			ok = true
			return false, true
		}
		return false, false
	})
	return found, ok
}

// find4CC scans the entire buffer byte-by-byte for a raw 4-character-code
// occurrence. CMT1/THMB sections live inside opaque uuid/CRAW payloads and
// are not addressable as ordinary top-level boxes, so they must be found
// this way rather than through WalkBoxes.
func find4CC(data []byte, code string) (int, bool) {
	if len(code) != 4 {
		return 0, false
	}
	c0, c1, c2, c3 := code[0], code[1], code[2], code[3]
	for i := 0; i+4 <= len(data); i++ {
		if data[i] == c0 && data[i+1] == c1 && data[i+2] == c2 && data[i+3] == c3 {
			return i, true
		}
	}
	return 0, false
}
