package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	LoadedChunks   int `json:"loaded_chunks"`
	ResidentChunks int `json:"resident_chunks"`
	PendingLoads   int `json:"pending_loads"`

	LoadedLastTick  int `json:"loaded_last_tick"`
	EvictedLastTick int `json:"evicted_last_tick"`
	RebuiltLastTick int `json:"rebuilt_last_tick"`

	LoadedTotal  uint64 `json:"loaded_total"`
	EvictedTotal uint64 `json:"evicted_total"`
	GatesTotal   uint64 `json:"gates_total"`

	Meshes       int    `json:"meshes"`
	MeshVertices int    `json:"mesh_vertices"`
	MeshIndices  int    `json:"mesh_indices"`
	MeshBuilds   uint64 `json:"mesh_builds"`

	Observers   int         `json:"observers"`
	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Pose  int `json:"pose"`
	Edits int `json:"edits"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(nextTick uint64, res StreamResult, rebuilt, gates int, stepMS float64) {
	prev := w.Metrics()
	ms := w.meshes.Stats()
	w.metrics.Store(WorldMetrics{
		Tick:            nextTick,
		LoadedChunks:    len(w.loaded),
		ResidentChunks:  w.chunks.Len(),
		PendingLoads:    res.Pending,
		LoadedLastTick:  len(res.Loaded),
		EvictedLastTick: len(res.Evicted),
		RebuiltLastTick: rebuilt,
		LoadedTotal:     prev.LoadedTotal + uint64(len(res.Loaded)),
		EvictedTotal:    prev.EvictedTotal + uint64(len(res.Evicted)),
		GatesTotal:      prev.GatesTotal + uint64(gates),
		Meshes:          ms.Meshes,
		MeshVertices:    ms.Vertices,
		MeshIndices:     ms.Indices,
		MeshBuilds:      ms.Builds,
		Observers:       len(w.observers),
		QueueDepths: QueueDepths{
			Pose:  len(w.pose),
			Edits: len(w.edits),
			Join:  len(w.observerJoin),
			Leave: len(w.observerLeave),
		},
		StepMS: stepMS,
	})
}
