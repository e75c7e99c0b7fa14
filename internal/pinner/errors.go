package pinner

import "errors"

var (
	// ErrPinFailed means the backend could not pin the full page range.
	ErrPinFailed = errors.New("failed to pin requested pages")
	// ErrNotFound means no region is tracked at the requested start page.
	ErrNotFound = errors.New("no pinned region tracked at address")
	// ErrSizeMismatch means the tracked region covers a different page
	// count than the unpin request. Partial unpin is not supported.
	ErrSizeMismatch = errors.New("pinned region size does not match request")
	// ErrAlreadyPinned means a live region already starts at the same page.
	ErrAlreadyPinned = errors.New("region already pinned at address")
)
