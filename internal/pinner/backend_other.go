//go:build !linux

package pinner

// Real pinning is only implemented for linux.
func probe() (Backend, bool) {
	return nil, false
}

// RaiseMemlockLimit is a no-op where mlock limits do not apply.
func RaiseMemlockLimit() error {
	return nil
}
