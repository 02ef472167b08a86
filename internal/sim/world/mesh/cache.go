package mesh

import "voxelgate.dev/internal/sim/world/terrain/store"

// Cache holds the last built mesh per chunk and bounds rebuild work per
// tick. It is owned by the world loop goroutine.
type Cache struct {
	pal    Palette
	opts   Options
	budget int

	meshes map[store.ChunkKey]*Mesh
	builds uint64
}

type CacheStats struct {
	Meshes   int    `json:"meshes"`
	Vertices int    `json:"vertices"`
	Indices  int    `json:"indices"`
	Builds   uint64 `json:"builds"`
}

func NewCache(pal Palette, opts Options, rebuildsPerTick int) *Cache {
	if rebuildsPerTick <= 0 {
		rebuildsPerTick = 1
	}
	return &Cache{
		pal:    pal,
		opts:   opts,
		budget: rebuildsPerTick,
		meshes: map[store.ChunkKey]*Mesh{},
	}
}

// Refresh rebuilds dirty chunks in the given priority order until the
// per-tick budget is spent and returns the rebuilt meshes.
func (c *Cache) Refresh(chunks []*store.Chunk, nb Neighbors) []*Mesh {
	var out []*Mesh
	for _, ch := range chunks {
		if len(out) >= c.budget {
			break
		}
		m, ok := Rebuild(ch, nb, c.pal, c.opts)
		if !ok {
			continue
		}
		c.builds++
		mm := &m
		c.meshes[ch.Key] = mm
		out = append(out, mm)
	}
	return out
}

// Drop releases meshes of evicted chunks.
func (c *Cache) Drop(keys ...store.ChunkKey) {
	for _, k := range keys {
		delete(c.meshes, k)
	}
}

func (c *Cache) Get(k store.ChunkKey) (*Mesh, bool) {
	m, ok := c.meshes[k]
	return m, ok
}

func (c *Cache) Len() int { return len(c.meshes) }

// Keys returns cached keys ordered by (CX, CZ).
func (c *Cache) Keys() []store.ChunkKey {
	keys := make([]store.ChunkKey, 0, len(c.meshes))
	for k := range c.meshes {
		keys = append(keys, k)
	}
	store.SortKeys(keys)
	return keys
}

func (c *Cache) Stats() CacheStats {
	st := CacheStats{Meshes: len(c.meshes), Builds: c.builds}
	for _, m := range c.meshes {
		st.Vertices += len(m.Vertices)
		st.Indices += len(m.Indices)
	}
	return st
}
