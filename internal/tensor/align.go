package tensor

import "unsafe"

// CacheLineSize is the alignment target for tensor buffers.
const CacheLineSize = 64

// AlignSize rounds size up to the given alignment boundary.
func AlignSize(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// AlignedBytes allocates a byte slice whose backing array starts on a
// cache line boundary. Returns nil for size 0.
func AlignedBytes(size int) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+CacheLineSize-1)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := uintptr(0)
	if mod := ptr % CacheLineSize; mod != 0 {
		offset = CacheLineSize - mod
	}
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}
