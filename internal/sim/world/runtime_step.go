package world

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelgate.dev/internal/observerproto"
	"voxelgate.dev/internal/sim/world/logic/mathx"
	"voxelgate.dev/internal/sim/world/logic/rates"
	"voxelgate.dev/internal/sim/world/mesh"
	"voxelgate.dev/internal/sim/world/terrain/gen"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// StepResult summarizes one tick.
type StepResult struct {
	Tick    uint64
	Stream  StreamResult
	Rebuilt []store.ChunkKey
	Gates   []gen.GateSite
	Edits   []EditOutcome
	Digest  string
}

type EditOutcome struct {
	Request EditRequest
	OK      bool
	Code    string
	From    uint8
}

func (w *World) stepInternal(pos mgl64.Vec3, edits []EditRequest) StepResult {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	w.tickGates = w.tickGates[:0]
	w.tickEdits = w.tickEdits[:0]

	// Edits apply before streaming so a chunk touched this tick is remeshed
	// in the same tick when it is loaded.
	outcomes := make([]EditOutcome, 0, len(edits))
	for _, req := range edits {
		outcomes = append(outcomes, w.applyEdit(nowTick, req))
	}

	res := w.Update(pos)
	w.meshes.Drop(res.Evicted...)

	built := w.meshes.Refresh(w.dirtyLoaded(res.Center), w)
	rebuilt := make([]store.ChunkKey, 0, len(built))
	for _, m := range built {
		rebuilt = append(rebuilt, m.Key)
	}

	w.stepObservers(nowTick, res, built, outcomes)

	digest := w.LoadedSetDigest()
	gates := append([]gen.GateSite(nil), w.tickGates...)
	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:            nowTick,
			Observer:        [3]float64{pos.X(), pos.Y(), pos.Z()},
			Loaded:          res.Loaded,
			Evicted:         res.Evicted,
			Rebuilt:         len(built),
			LoadedCount:     len(w.loaded),
			LoadedSetDigest: digest,
			Gates:           gates,
			Edits:           append([]AuditEntry(nil), w.tickEdits...),
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Printf("tick log: %v", err)
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, res, len(built), len(gates), stepMS)

	return StepResult{
		Tick:    nowTick,
		Stream:  res,
		Rebuilt: rebuilt,
		Gates:   gates,
		Edits:   outcomes,
		Digest:  digest,
	}
}

func (w *World) applyEdit(nowTick uint64, req EditRequest) EditOutcome {
	x, y, z := req.Pos[0], req.Pos[1], req.Pos[2]
	out := EditOutcome{Request: req}
	if y < 0 || y >= w.cfg.Height {
		out.Code = observerproto.ErrInvalidTarget
		return out
	}
	// Only valid targets count, so every window opens on an accepted edit.
	if w.cfg.EditsPerSecond > 0 {
		lim := w.editLimits[req.SessionID]
		if lim == nil {
			lim = &rates.Window{}
			w.editLimits[req.SessionID] = lim
		}
		if ok, _ := lim.Allow(nowTick, uint64(w.cfg.TickRateHz), w.cfg.EditsPerSecond); !ok {
			out.Code = observerproto.ErrRateLimited
			return out
		}
	}
	out.From = w.GetBlock(x, y, z)
	if !w.SetBlock(x, y, z, req.Block) {
		out.Code = observerproto.ErrInvalidTarget
		return out
	}
	out.OK = true
	entry := AuditEntry{
		Tick:   nowTick,
		Actor:  req.SessionID,
		Action: "SET_BLOCK",
		Pos:    req.Pos,
		From:   out.From,
		To:     req.Block,
	}
	w.tickEdits = append(w.tickEdits, entry)
	if w.auditLogger != nil {
		if err := w.auditLogger.WriteAudit(entry); err != nil {
			w.log.Printf("audit log: %v", err)
		}
	}
	return out
}

// dirtyLoaded returns dirty loaded chunks nearest to center first.
func (w *World) dirtyLoaded(center store.ChunkKey) []*store.Chunk {
	var out []*store.Chunk
	for k := range w.loaded {
		ch, ok := w.chunks.Get(k)
		if !ok || !ch.Dirty() {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
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
	return out
}

// Mesh returns the last built mesh of a loaded chunk.
func (w *World) Mesh(k store.ChunkKey) (*mesh.Mesh, bool) {
	return w.meshes.Get(k)
}

func (w *World) MeshStats() mesh.CacheStats { return w.meshes.Stats() }
