package pinner

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// mockBackend hands out a unique token per pinned page and tracks which
// tokens are live, so tests can assert exactly-once release and catch
// double releases even across racing pins of the same range.
type mockBackend struct {
	mu sync.Mutex

	// failAfter caps how many pages a single Pin may acquire before it
	// fails; -1 disables the limit.
	failAfter int

	nextToken uint
	live      *bitset.BitSet

	pinCalls       int
	released       []Handle
	doubleReleases int
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		failAfter: -1,
		live:      bitset.New(1024),
	}
}

func (m *mockBackend) Pin(_ uintptr, pages uint64, _ Flags) ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pinCalls++

	handles := make([]Handle, 0, pages)

	for i := uint64(0); i < pages; i++ {
		if m.failAfter >= 0 && len(handles) >= m.failAfter {
			return handles, fmt.Errorf("mock pin limit of %d pages reached", m.failAfter)
		}

		token := m.nextToken
		m.nextToken++
		m.live.Set(token)

		handles = append(handles, Handle(token))
	}

	return handles, nil
}

func (m *mockBackend) Release(handles []Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, handle := range handles {
		token := uint(handle)

		if !m.live.Test(token) {
			m.doubleReleases++

			continue
		}

		m.live.Clear(token)
		m.released = append(m.released, handle)
	}

	return nil
}

func (m *mockBackend) Name() string {
	return "mock"
}

// outstanding reports how many pages are pinned and not yet released.
func (m *mockBackend) outstanding() uint {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live.Count()
}

func (m *mockBackend) releasedHandles() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Handle, len(m.released))
	copy(out, m.released)

	return out
}
