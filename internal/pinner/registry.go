package pinner

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Registry tracks the live regions of one session, keyed by the region's
// starting page index. It is safe for concurrent use; mutations on the
// same key are mutually exclusive.
type Registry struct {
	m cmap.ConcurrentMap[uint64, *Region]
}

func NewRegistry() *Registry {
	return &Registry{
		m: cmap.NewWithCustomShardingFunction[uint64, *Region](shardPage),
	}
}

// murmur3 finalizer, spreads sequential page indexes across shards.
func shardPage(key uint64) uint32 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33

	return uint32(key)
}

// InsertIfAbsent stores region under start unless the key already holds a
// live region. It reports whether the insert happened.
func (r *Registry) InsertIfAbsent(start uint64, region *Region) bool {
	return r.m.SetIfAbsent(start, region)
}

func (r *Registry) Get(start uint64) (*Region, bool) {
	return r.m.Get(start)
}

func (r *Registry) Remove(start uint64) {
	r.m.Remove(start)
}

// RemoveCb runs cb under the key's lock and removes the entry when cb
// returns true. It reports whether the entry was removed.
func (r *Registry) RemoveCb(start uint64, cb func(start uint64, region *Region, exists bool) bool) bool {
	return r.m.RemoveCb(start, cb)
}

// Items returns a point-in-time snapshot of every live entry.
func (r *Registry) Items() map[uint64]*Region {
	return r.m.Items()
}

func (r *Registry) Count() int {
	return r.m.Count()
}
