// Package pinner implements the pinned-region registry: per-session
// bookkeeping that turns the raw page pinning primitive into an
// all-or-nothing, leak-free resource manager.
package pinner

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns the pinned regions of one control channel. It is created
// when the channel opens and must be closed exactly when the channel
// closes. Pin and Unpin are safe to call concurrently; Close must not
// race them.
type Session struct {
	ID string

	backend  Backend
	pageSize uint64
	registry *Registry

	closeOnce sync.Once
	log       *zap.Logger
}

func NewSession(backend Backend, pageSize uint64, log *zap.Logger, fields ...zap.Field) *Session {
	id := uuid.NewString()

	return &Session{
		ID:       id,
		backend:  backend,
		pageSize: pageSize,
		registry: NewRegistry(),
		log:      log.With(append([]zap.Field{zap.String("session_id", id)}, fields...)...),
	}
}

// Pin locks every page touched by [addr, addr+size) and tracks the result
// as one region keyed by its first page. Either the whole range ends up
// pinned and registered, or nothing does: any partially acquired handles
// are released before an error returns.
//
// A zero addr or size is tolerated as a no-op rather than rejected, but
// logged loudly since it usually means a confused caller.
func (s *Session) Pin(addr, size uint64) error {
	if addr == 0 || size == 0 {
		s.log.Error("pin of empty range ignored", zap.Uint64("addr", addr), zap.Uint64("size", size))

		return nil
	}

	first, count := PageRange(addr, size, s.pageSize)
	aligned := uintptr(PageFloor(addr, s.pageSize))

	handles, err := s.backend.Pin(aligned, count, PinWrite|PinForce|PinLongterm)
	if err != nil || uint64(len(handles)) != count {
		s.release(handles)

		if err == nil {
			err = fmt.Errorf("got %d of %d pages", len(handles), count)
		}

		return fmt.Errorf("%w: %w", ErrPinFailed, err)
	}

	region := &Region{StartPage: first, PageCount: count, Handles: handles}
	if !s.registry.InsertIfAbsent(first, region) {
		s.release(handles)

		return fmt.Errorf("%w: page %#x", ErrAlreadyPinned, first)
	}

	s.log.Debug("pinned region",
		zap.Uint64("first_page", first),
		zap.Uint64("pages", count),
		zap.String("size", humanize.IBytes(size)),
	)

	return nil
}

// Unpin releases the region previously pinned with the exact same range.
// The request must cover the same page count the pin recorded; partial
// unpin of a subset of a region is not supported. On ErrNotFound and
// ErrSizeMismatch the registry is left untouched.
func (s *Session) Unpin(addr, size uint64) error {
	first, count := PageRange(addr, size, s.pageSize)

	var region *Region
	var lookupErr error

	s.registry.RemoveCb(first, func(_ uint64, tracked *Region, exists bool) bool {
		if !exists {
			lookupErr = fmt.Errorf("%w: page %#x", ErrNotFound, first)

			return false
		}

		if tracked.PageCount != count {
			lookupErr = fmt.Errorf("%w: tracked %d pages, requested %d", ErrSizeMismatch, tracked.PageCount, count)

			return false
		}

		region = tracked

		return true
	})
	if lookupErr != nil {
		return lookupErr
	}

	s.release(region.Handles)

	s.log.Debug("unpinned region", zap.Uint64("first_page", first), zap.Uint64("pages", count))

	return nil
}

// Regions returns the number of live regions the session tracks.
func (s *Session) Regions() int {
	return s.registry.Count()
}

// Close releases every region the session still tracks and empties the
// registry. The sweep is best-effort: a failed release is logged and does
// not stop the rest. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		regions := s.registry.Items()

		for start, region := range regions {
			s.release(region.Handles)
			s.registry.Remove(start)
		}

		s.log.Info("session closed", zap.Int("regions_released", len(regions)))
	})

	return nil
}

func (s *Session) release(handles []Handle) {
	if len(handles) == 0 {
		return
	}

	if err := s.backend.Release(handles); err != nil {
		s.log.Warn("failed to release page handles", zap.Error(err))
	}
}
