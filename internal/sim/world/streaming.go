package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelgate.dev/internal/sim/world/logic/mathx"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// StreamResult lists what one Update changed, in the order it happened.
type StreamResult struct {
	Center  store.ChunkKey
	Loaded  []store.ChunkKey
	Evicted []store.ChunkKey
	Pending int
}

// ObserverChunk maps a world-space position to its chunk coordinate.
func (w *World) ObserverChunk(pos mgl64.Vec3) store.ChunkKey {
	x := int(math.Floor(pos.X()))
	z := int(math.Floor(pos.Z()))
	return w.ChunkKeyAt(x, z)
}

// Update runs the streaming step for an observer position: it loads at most
// LoadsPerTick chunks within RenderDistance, nearest first, then evicts every
// resident chunk farther than RenderDistance+Hysteresis.
func (w *World) Update(pos mgl64.Vec3) StreamResult {
	w.observer = pos
	center := w.ObserverChunk(pos)
	if !w.queue.valid || w.queue.center != center {
		w.queue.reset(center, w.cfg.RenderDistance)
	}

	res := StreamResult{Center: center}
	for len(res.Loaded) < w.cfg.LoadsPerTick {
		k, ok := w.queue.pop(w.loaded)
		if !ok {
			break
		}
		w.load(k)
		res.Loaded = append(res.Loaded, k)
	}

	limit := w.cfg.RenderDistance + w.cfg.Hysteresis
	var unloaded []store.ChunkKey
	for _, k := range w.chunks.Keys() {
		if mathx.Chebyshev(k.CX, k.CZ, center.CX, center.CZ) <= limit {
			continue
		}
		if _, ok := w.loaded[k]; ok {
			unloaded = append(unloaded, k)
		}
		delete(w.loaded, k)
		w.chunks.Erase(k)
		res.Evicted = append(res.Evicted, k)
	}
	// Faces of surviving neighbours were culled against the evicted chunks
	// and must be emitted again now that those chunks are gone.
	for _, k := range unloaded {
		w.markNeighborsDirty(k)
	}
	res.Pending = w.queue.pending(w.loaded)
	return res
}

func (w *World) markNeighborsDirty(k store.ChunkKey) {
	for _, n := range [4]store.ChunkKey{
		{CX: k.CX - 1, CZ: k.CZ},
		{CX: k.CX + 1, CZ: k.CZ},
		{CX: k.CX, CZ: k.CZ - 1},
		{CX: k.CX, CZ: k.CZ + 1},
	} {
		w.markLoadedDirty(n)
	}
}

func (w *World) load(k store.ChunkKey) {
	ch := w.ensureChunk(k)
	w.loaded[k] = struct{}{}
	ch.MarkDirty()
	if w.cfg.ReseamOnLoad {
		w.markNeighborsDirty(k)
	}
}

// IsLoaded reports whether k is in the loaded set.
func (w *World) IsLoaded(k store.ChunkKey) bool {
	_, ok := w.loaded[k]
	return ok
}

// LoadedKeys returns the loaded set ordered by (CX, CZ).
func (w *World) LoadedKeys() []store.ChunkKey {
	keys := make([]store.ChunkKey, 0, len(w.loaded))
	for k := range w.loaded {
		keys = append(keys, k)
	}
	store.SortKeys(keys)
	return keys
}

// LoadedChunks returns handles to every loaded chunk, ordered by key.
func (w *World) LoadedChunks() []*store.Chunk {
	keys := w.LoadedKeys()
	out := make([]*store.Chunk, 0, len(keys))
	for _, k := range keys {
		if ch, ok := w.chunks.Get(k); ok {
			out = append(out, ch)
		}
	}
	return out
}

func (w *World) LoadedCount() int   { return len(w.loaded) }
func (w *World) ResidentCount() int { return w.chunks.Len() }

// Observer is the last position passed to Update.
func (w *World) Observer() mgl64.Vec3 { return w.observer }
