package pinner

import "go.uber.org/zap"

// Handle is an opaque reference to one pinned page. It is only valid for
// release on the backend that produced it, and must not be released twice.
type Handle uintptr

// Flags adjust how the backend acquires pages.
type Flags uint32

const (
	// PinWrite requests the pages be pinned writable.
	PinWrite Flags = 1 << iota
	// PinForce permits pinning mappings the caller could not otherwise
	// write to.
	PinForce
	// PinLongterm marks the pin as held for an unbounded time, so the
	// kernel should migrate the pages out of movable zones first.
	PinLongterm
)

// Backend is the page pinning primitive. Implementations make pages
// physically resident and locked against eviction or relocation until
// they are explicitly released.
type Backend interface {
	// Pin locks pages pages starting at the page-aligned addr. On failure
	// it returns the handles it did acquire together with the error; the
	// caller owns releasing them.
	Pin(addr uintptr, pages uint64, flags Flags) ([]Handle, error)

	// Release unlocks previously pinned pages. Handles must come from a
	// prior Pin on the same backend and must not be released twice.
	Release(handles []Handle) error

	Name() string
}

// Detect picks the pinning backend for this process. When real pinning is
// unavailable, or pretend is set, it falls back to a no-op backend that
// keeps the protocol and registry bookkeeping intact without locking
// anything: callers must not assume physical addresses are stable then.
func Detect(pretend bool) Backend {
	if pretend {
		zap.L().Warn("pretend pinning forced by configuration, physical addresses will not be stable")

		return noopBackend{}
	}

	backend, ok := probe()
	if !ok {
		zap.L().Warn("page pinning unavailable on this system, falling back to pretend mode")

		return noopBackend{}
	}

	return backend
}
