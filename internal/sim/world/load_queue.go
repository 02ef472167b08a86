package world

import (
	"sort"

	"voxelgate.dev/internal/sim/world/logic/mathx"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// loadQueue holds the load candidates around one centre, nearest first.
// It is rebuilt only when the observer enters another chunk, so a stationary
// observer drains the same order tick after tick.
type loadQueue struct {
	center store.ChunkKey
	valid  bool
	keys   []store.ChunkKey
	next   int
}

func (q *loadQueue) reset(center store.ChunkKey, radius int) {
	q.center = center
	q.valid = true
	q.next = 0
	q.keys = q.keys[:0]
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			q.keys = append(q.keys, store.ChunkKey{CX: center.CX + dx, CZ: center.CZ + dz})
		}
	}
	sort.Slice(q.keys, func(i, j int) bool {
		a, b := q.keys[i], q.keys[j]
		da := mathx.Chebyshev(a.CX, a.CZ, center.CX, center.CZ)
		db := mathx.Chebyshev(b.CX, b.CZ, center.CX, center.CZ)
		if da != db {
			return da < db
		}
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		return a.CZ < b.CZ
	})
}

// pop returns the next candidate that is not loaded yet.
func (q *loadQueue) pop(loaded map[store.ChunkKey]struct{}) (store.ChunkKey, bool) {
	for q.next < len(q.keys) {
		k := q.keys[q.next]
		q.next++
		if _, ok := loaded[k]; !ok {
			return k, true
		}
	}
	return store.ChunkKey{}, false
}

// pending counts candidates still waiting to load.
func (q *loadQueue) pending(loaded map[store.ChunkKey]struct{}) int {
	n := 0
	for _, k := range q.keys[q.next:] {
		if _, ok := loaded[k]; !ok {
			n++
		}
	}
	return n
}
