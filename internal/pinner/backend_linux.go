//go:build linux

package pinner

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mlockBackend pins with mlock, one page per handle. A handle is the
// pinned page's address. mlock is not reference counted by the kernel,
// so the backend keeps a process-wide per-page lock count: a page is
// munlocked only when the last pin holding it is released, which keeps
// overlapping regions and sessions from unlocking each other.
//
// mlock has no write/force variants, so the pin flags carry no extra
// meaning here; locked pages are resident and unmovable until munlock,
// which covers the long-term contract.
type mlockBackend struct {
	pageSize uintptr

	mu     sync.Mutex
	locked map[uintptr]uint64
}

func (b *mlockBackend) Pin(addr uintptr, pages uint64, _ Flags) ([]Handle, error) {
	handles := make([]Handle, 0, pages)

	for i := uint64(0); i < pages; i++ {
		page := addr + uintptr(i)*b.pageSize

		if err := b.lockPage(page); err != nil {
			return handles, err
		}

		handles = append(handles, Handle(page))
	}

	return handles, nil
}

func (b *mlockBackend) Release(handles []Handle) error {
	var errs []error

	for _, handle := range handles {
		if err := b.unlockPage(uintptr(handle)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *mlockBackend) Name() string {
	return "mlock"
}

// lockPage mlocks on the first reference and only bumps the count for
// later pins of the same page.
func (b *mlockBackend) lockPage(page uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locked[page] == 0 {
		mem := unsafe.Slice((*byte)(unsafe.Pointer(page)), b.pageSize)
		if err := unix.Mlock(mem); err != nil {
			return fmt.Errorf("mlock page at %#x: %w", page, err)
		}
	}

	b.locked[page]++

	return nil
}

func (b *mlockBackend) unlockPage(page uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, ok := b.locked[page]
	if !ok {
		return fmt.Errorf("release of page at %#x that is not locked", page)
	}

	if count > 1 {
		b.locked[page] = count - 1

		return nil
	}

	delete(b.locked, page)

	mem := unsafe.Slice((*byte)(unsafe.Pointer(page)), b.pageSize)
	if err := unix.Munlock(mem); err != nil {
		return fmt.Errorf("munlock page at %#x: %w", page, err)
	}

	return nil
}

// lockCount reports how many pins currently hold page locked.
func (b *mlockBackend) lockCount(page uintptr) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.locked[page]
}

// probe checks whether this process may lock memory at all by locking and
// unlocking one throwaway page.
func probe() (Backend, bool) {
	pageSize := unix.Getpagesize()

	mem, err := unix.Mmap(-1, 0, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, false
	}
	defer unix.Munmap(mem)

	if err := unix.Mlock(mem); err != nil {
		return nil, false
	}
	_ = unix.Munlock(mem)

	return &mlockBackend{
		pageSize: uintptr(pageSize),
		locked:   make(map[uintptr]uint64),
	}, true
}

// RaiseMemlockLimit lifts RLIMIT_MEMLOCK so the mlock backend is not
// capped by the default ulimit. Requires CAP_IPC_LOCK or root.
func RaiseMemlockLimit() error {
	limit := unix.Rlimit{Cur: unix.RLIM_INFINITY, Max: unix.RLIM_INFINITY}
	if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &limit); err != nil {
		return fmt.Errorf("setrlimit RLIMIT_MEMLOCK: %w", err)
	}

	return nil
}
