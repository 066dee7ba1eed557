package rawpreview

// Shared byte-fixture builders for synthetic TIFF/JPEG test data. Real RAW
// samples are large binary files with per-vendor quirks this package
// doesn't have fixtures for, so tests build minimal valid containers
// directly instead.

func putU16(buf []byte, v uint16, le bool) {
	if le {
		buf[0], buf[1] = byte(v), byte(v>>8)
	} else {
		buf[0], buf[1] = byte(v>>8), byte(v)
	}
}

func putU32(buf []byte, v uint32, le bool) {
	if le {
		buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	} else {
		buf[0], buf[1], buf[2], buf[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	}
}

func longVal(le bool, v uint32) [4]byte {
	var out [4]byte
	putU32(out[:], v, le)
	return out
}

func shortVal(le bool, v uint16) [4]byte {
	var out [4]byte
	putU16(out[:2], v, le)
	return out
}

// tiffHeader builds the 8-byte TIFF header: byte-order marker, magic 0x002A,
// offset of the first IFD.
func tiffHeader(le bool, firstIFD uint32) []byte {
	buf := make([]byte, 8)
	if le {
		buf[0], buf[1] = 'I', 'I'
	} else {
		buf[0], buf[1] = 'M', 'M'
	}
	putU16(buf[2:4], 0x002A, le)
	putU32(buf[4:8], firstIFD, le)
	return buf
}

// tiffTagBytes builds one 12-byte IFD directory entry.
func tiffTagBytes(le bool, id, typ uint16, count uint32, raw [4]byte) []byte {
	buf := make([]byte, 12)
	putU16(buf[0:2], id, le)
	putU16(buf[2:4], typ, le)
	putU32(buf[4:8], count, le)
	copy(buf[8:12], raw[:])
	return buf
}

// buildIfd concatenates an entry count, the given 12-byte entries (in the
// order given; real IFDs sort them by tag ID, but this package doesn't
// require that and several fixtures don't), and a next-IFD offset.
func buildIfd(le bool, entries [][]byte, nextOffset uint32) []byte {
	buf := make([]byte, 0, 2+12*len(entries)+4)
	count := make([]byte, 2)
	putU16(count, uint16(len(entries)), le)
	buf = append(buf, count...)
	for _, e := range entries {
		buf = append(buf, e...)
	}
	next := make([]byte, 4)
	putU32(next, nextOffset, le)
	return append(buf, next...)
}

// validJpeg returns a minimal byte-valid JPEG stream of exactly size bytes:
// an SOI marker, filler bytes that are never mistaken for a marker, and an
// EOI marker. It says nothing about real image content.
func validJpeg(size int) []byte {
	if size < 4 {
		size = 4
	}
	buf := make([]byte, size)
	buf[0], buf[1] = 0xFF, 0xD8
	for i := 2; i < size-2; i++ {
		buf[i] = 0xAA
	}
	buf[size-2], buf[size-1] = 0xFF, 0xD9
	return buf
}

// asciiTagValue returns the 12-byte entry and any trailing bytes that must
// be appended to the buffer for an ASCII tag whose value doesn't fit inline
// (len(s)+1 > 4, accounting for the NUL terminator). offset is where the
// caller must place those trailing bytes.
func asciiTagValue(le bool, id uint16, s string, offset uint32) (entry []byte, extra []byte) {
	raw := append([]byte(s), 0)
	count := uint32(len(raw))
	if count <= 4 {
		var v [4]byte
		copy(v[:], raw)
		return tiffTagBytes(le, id, tiffTypeASCII, count, v), nil
	}
	return tiffTagBytes(le, id, tiffTypeASCII, count, longVal(le, offset)), raw
}
