package rawpreview

// ReadUint16 decodes a 2-byte value at the start of data using the given
// byte order. Callers must bounds-check len(data) >= 2 first.
func ReadUint16(data []byte, littleEndian bool) uint16 {
	if littleEndian {
		return uint16(data[0]) | uint16(data[1])<<8
	}
	return uint16(data[0])<<8 | uint16(data[1])
}

// ReadUint32 decodes a 4-byte value at the start of data using the given
// byte order. Callers must bounds-check len(data) >= 4 first.
func ReadUint32(data []byte, littleEndian bool) uint32 {
	if littleEndian {
		return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
}

// DetectEndianness reads the 2-byte TIFF byte-order marker ("II" or "MM")
// at the start of data. ok is false if data is too short or the marker is
// neither.
func DetectEndianness(data []byte) (littleEndian bool, ok bool) {
	if len(data) < 2 {
		return false, false
	}
	switch {
	case data[0] == 'I' && data[1] == 'I':
		return true, true
	case data[0] == 'M' && data[1] == 'M':
		return false, true
	default:
		return false, false
	}
}

// InBounds reports whether [offset, offset+length) lies within a buffer of
// the given size, guarding against uint overflow on the addition.
func InBounds(size, offset, length uint64) bool {
	if offset > size {
		return false
	}
	remaining := size - offset
	return length <= remaining
}

// readBigEndianUint32At reads a big-endian u32 at offset, returning ok=false
// if it would read out of bounds.
func readBigEndianUint32At(data []byte, offset int) (uint32, bool) {
	if offset < 0 || offset+4 > len(data) {
		return 0, false
	}
	return ReadUint32(data[offset:offset+4], false), true
}
