package pinner

import (
	"math/bits"

	"golang.org/x/sys/unix"
)

// HostPageSize returns the page size of the running system.
func HostPageSize() uint64 {
	return uint64(unix.Getpagesize())
}

// PageFloor rounds addr down to the start of its page.
func PageFloor(addr, pageSize uint64) uint64 {
	return addr &^ (pageSize - 1)
}

// PageRange computes the span of pages covered by [addr, addr+size).
// It returns the index of the first page and the number of pages up to
// and including the one holding the last byte of the range.
func PageRange(addr, size, pageSize uint64) (first, count uint64) {
	shift := uint64(bits.TrailingZeros64(pageSize))

	first = PageFloor(addr, pageSize) >> shift
	last := PageFloor(addr+size-1, pageSize) >> shift

	return first, last - first + 1
}
