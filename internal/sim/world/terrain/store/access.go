package store

import (
	"sort"

	"voxelgate.dev/internal/sim/world/logic/mathx"
)

// ChunkStore is the resident chunk arena. Insertion and removal are
// explicit; nothing is created on a plain lookup.
type ChunkStore struct {
	size   int
	height int
	chunks map[ChunkKey]*Chunk
}

func NewChunkStore(size, height int) *ChunkStore {
	return &ChunkStore{
		size:   size,
		height: height,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) Size() int   { return s.size }
func (s *ChunkStore) Height() int { return s.height }
func (s *ChunkStore) Len() int    { return len(s.chunks) }

func (s *ChunkStore) Get(k ChunkKey) (*Chunk, bool) {
	ch, ok := s.chunks[k]
	return ch, ok
}

// Insert returns the resident chunk for k, creating an empty, ungenerated
// one on a miss. created reports whether a new chunk was allocated.
func (s *ChunkStore) Insert(k ChunkKey) (ch *Chunk, created bool) {
	if ch, ok := s.chunks[k]; ok {
		return ch, false
	}
	ch = NewChunk(k, s.size, s.height)
	s.chunks[k] = ch
	return ch, true
}

func (s *ChunkStore) Erase(k ChunkKey) bool {
	if _, ok := s.chunks[k]; !ok {
		return false
	}
	delete(s.chunks, k)
	return true
}

// Keys returns resident keys ordered by (CX, CZ).
func (s *ChunkStore) Keys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Locate maps world block coordinates to the owning chunk and local offsets.
func (s *ChunkStore) Locate(x, z int) (k ChunkKey, lx, lz int) {
	k = ChunkKey{CX: mathx.FloorDiv(x, s.size), CZ: mathx.FloorDiv(z, s.size)}
	return k, mathx.Mod(x, s.size), mathx.Mod(z, s.size)
}

func SortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}
