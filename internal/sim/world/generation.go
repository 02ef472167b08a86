package world

import (
	"voxelgate.dev/internal/sim/world/terrain/gen"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

func (w *World) recordGeneration(ch *store.Chunk, rep gen.Report) {
	w.tickGates = append(w.tickGates, rep.Gates...)
	if w.index == nil {
		return
	}
	tick := w.tick.Load()
	w.index.RecordChunk(tick, rep, ch.Digest())
	for _, g := range rep.Gates {
		w.index.RecordGate(tick, g)
	}
}
