package world

import (
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// GetBlock returns the block at a world position. Heights outside the world
// read as air. A missing chunk is created and generated on demand but is not
// added to the loaded set.
func (w *World) GetBlock(x, y, z int) uint8 {
	if y < 0 || y >= w.cfg.Height {
		return store.Air
	}
	k, lx, lz := w.chunks.Locate(x, z)
	ch := w.ensureChunk(k)
	return ch.Get(lx, y, lz)
}

// SetBlock writes a block and marks the owning chunk dirty. It returns false
// only when y is outside the world. Writes on a chunk border also mark the
// loaded chunk across that border dirty, since its faces may change.
func (w *World) SetBlock(x, y, z int, id uint8) bool {
	if y < 0 || y >= w.cfg.Height {
		return false
	}
	k, lx, lz := w.chunks.Locate(x, z)
	ch := w.ensureChunk(k)
	if !ch.Set(lx, y, lz, id) {
		return false
	}
	last := w.cfg.ChunkSize - 1
	if lx == 0 {
		w.markLoadedDirty(store.ChunkKey{CX: k.CX - 1, CZ: k.CZ})
	}
	if lx == last {
		w.markLoadedDirty(store.ChunkKey{CX: k.CX + 1, CZ: k.CZ})
	}
	if lz == 0 {
		w.markLoadedDirty(store.ChunkKey{CX: k.CX, CZ: k.CZ - 1})
	}
	if lz == last {
		w.markLoadedDirty(store.ChunkKey{CX: k.CX, CZ: k.CZ + 1})
	}
	return true
}

// NeighborBlock resolves cells for the mesh builder. Only loaded chunks
// answer; anything else reports ok=false and is treated as see-through.
func (w *World) NeighborBlock(x, y, z int) (uint8, bool) {
	if y < 0 || y >= w.cfg.Height {
		return store.Air, false
	}
	k, lx, lz := w.chunks.Locate(x, z)
	if _, ok := w.loaded[k]; !ok {
		return store.Air, false
	}
	ch, ok := w.chunks.Get(k)
	if !ok {
		return store.Air, false
	}
	return ch.Get(lx, y, lz), true
}

// Chunk returns a resident chunk without creating it.
func (w *World) Chunk(k store.ChunkKey) (*store.Chunk, bool) {
	return w.chunks.Get(k)
}

// ChunkKeyAt maps a world column to its chunk coordinate.
func (w *World) ChunkKeyAt(x, z int) store.ChunkKey {
	k, _, _ := w.chunks.Locate(x, z)
	return k
}

// ensureChunk returns the resident chunk for k, generating it on first use.
func (w *World) ensureChunk(k store.ChunkKey) *store.Chunk {
	ch, _ := w.chunks.Insert(k)
	if rep, ok := w.gen.Generate(ch); ok {
		w.recordGeneration(ch, rep)
	}
	return ch
}

func (w *World) markLoadedDirty(k store.ChunkKey) {
	if _, ok := w.loaded[k]; !ok {
		return
	}
	if ch, ok := w.chunks.Get(k); ok {
		ch.MarkDirty()
	}
}
