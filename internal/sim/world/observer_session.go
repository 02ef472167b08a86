package world

import (
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// ObserverJoinRequest registers a read-only observer session that receives:
// - chunk meshes, evictions and edit results (dataOut)
// - per-tick streaming state (tickOut)
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
	DataOut   chan []byte

	Compress         bool
	MaxMeshesPerTick int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID string

	Compress         bool
	MaxMeshesPerTick int
}

type observerClient struct {
	id      string
	tickOut chan []byte
	dataOut chan []byte

	cfg observerCfg

	// Meshes the client holds, and work still owed to it. Entries stay
	// pending until dataOut accepts them.
	sent         map[store.ChunkKey]struct{}
	pendingMesh  map[store.ChunkKey]struct{}
	pendingEvict map[store.ChunkKey]struct{}
}

type observerCfg struct {
	compress         bool
	maxMeshesPerTick int
}

const (
	defaultMeshesPerTick = 64
	maxMeshesPerTick     = 1024
)

func clampMeshes(v, def int) int {
	if v <= 0 {
		return def
	}
	if v > maxMeshesPerTick {
		return maxMeshesPerTick
	}
	return v
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if w == nil || req.SessionID == "" || req.TickOut == nil || req.DataOut == nil {
		return
	}

	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
		close(old.dataOut)
	}

	c := &observerClient{
		id:      req.SessionID,
		tickOut: req.TickOut,
		dataOut: req.DataOut,
		cfg: observerCfg{
			compress:         req.Compress,
			maxMeshesPerTick: clampMeshes(req.MaxMeshesPerTick, defaultMeshesPerTick),
		},
		sent:         map[store.ChunkKey]struct{}{},
		pendingMesh:  map[store.ChunkKey]struct{}{},
		pendingEvict: map[store.ChunkKey]struct{}{},
	}
	// Full snapshot: every mesh currently cached.
	for _, k := range w.meshes.Keys() {
		c.pendingMesh[k] = struct{}{}
	}
	w.observers[req.SessionID] = c
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.cfg.compress = req.Compress
	c.cfg.maxMeshesPerTick = clampMeshes(req.MaxMeshesPerTick, c.cfg.maxMeshesPerTick)
}

func (w *World) handleObserverLeave(sessionID string) {
	if sessionID == "" {
		return
	}
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	delete(w.editLimits, sessionID)
	close(c.tickOut)
	close(c.dataOut)
}

// ObserverCount is only safe from the world loop goroutine; use Metrics
// elsewhere.
func (w *World) ObserverCount() int { return len(w.observers) }
