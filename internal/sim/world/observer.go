package world

import (
	"encoding/json"
	"sort"

	"voxelgate.dev/internal/observerproto"
	"voxelgate.dev/internal/sim/world/io/meshcodec"
	"voxelgate.dev/internal/sim/world/logic/mathx"
	"voxelgate.dev/internal/sim/world/mesh"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

func (w *World) stepObservers(nowTick uint64, res StreamResult, built []*mesh.Mesh, edits []EditOutcome) {
	if len(w.observers) == 0 {
		return
	}

	tickMsg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Observer:        [3]float64{w.observer.X(), w.observer.Y(), w.observer.Z()},
		ObserverChunk:   [2]int{res.Center.CX, res.Center.CZ},
		Loaded:          len(w.loaded),
		Resident:        w.chunks.Len(),
		LoadedNow:       len(res.Loaded),
		Evicted:         len(res.Evicted),
		Rebuilt:         len(built),
		Pending:         res.Pending,
	}
	tickBytes, err := json.Marshal(tickMsg)
	if err != nil {
		w.log.Printf("observer tick marshal: %v", err)
		return
	}

	ids := make([]string, 0, len(w.observers))
	for id := range w.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := w.observers[id]
		for _, k := range res.Evicted {
			delete(c.pendingMesh, k)
			if _, ok := c.sent[k]; ok {
				c.pendingEvict[k] = struct{}{}
			}
		}
		for _, m := range built {
			delete(c.pendingEvict, m.Key)
			c.pendingMesh[m.Key] = struct{}{}
		}
		for _, e := range edits {
			if e.Request.SessionID == id {
				w.sendEditResult(c, nowTick, e)
			}
		}
		w.flushEvicts(c)
		w.flushMeshes(c, res.Center)
		sendLatest(c.tickOut, tickBytes)
	}
}

func (w *World) flushEvicts(c *observerClient) {
	keys := sortedKeys(c.pendingEvict)
	for _, k := range keys {
		b, err := json.Marshal(observerproto.ChunkEvictMsg{
			Type:            observerproto.TypeChunkEvict,
			ProtocolVersion: observerproto.Version,
			CX:              k.CX,
			CZ:              k.CZ,
		})
		if err != nil {
			continue
		}
		if !trySend(c.dataOut, b) {
			return
		}
		delete(c.pendingEvict, k)
		delete(c.sent, k)
	}
}

// flushMeshes sends pending meshes nearest first, bounded by the session cap.
func (w *World) flushMeshes(c *observerClient, center store.ChunkKey) {
	keys := sortedKeys(c.pendingMesh)
	sort.SliceStable(keys, func(i, j int) bool {
		return mathx.Chebyshev(keys[i].CX, keys[i].CZ, center.CX, center.CZ) <
			mathx.Chebyshev(keys[j].CX, keys[j].CZ, center.CX, center.CZ)
	})
	sent := 0
	for _, k := range keys {
		if sent >= c.cfg.maxMeshesPerTick {
			return
		}
		m, ok := w.meshes.Get(k)
		if !ok {
			delete(c.pendingMesh, k)
			continue
		}
		b, err := encodeChunkMesh(m, c.cfg.compress)
		if err != nil {
			w.log.Printf("observer %s mesh %s: %v", c.id, k, err)
			delete(c.pendingMesh, k)
			continue
		}
		if !trySend(c.dataOut, b) {
			return
		}
		delete(c.pendingMesh, k)
		c.sent[k] = struct{}{}
		sent++
	}
}

func (w *World) sendEditResult(c *observerClient, nowTick uint64, e EditOutcome) {
	b, err := json.Marshal(observerproto.EditResultMsg{
		Type:            observerproto.TypeEditResult,
		ProtocolVersion: observerproto.Version,
		RequestID:       e.Request.RequestID,
		Tick:            nowTick,
		OK:              e.OK,
		Code:            e.Code,
		Pos:             e.Request.Pos,
		Block:           e.Request.Block,
	})
	if err != nil {
		return
	}
	trySend(c.dataOut, b)
}

func encodeChunkMesh(m *mesh.Mesh, compress bool) ([]byte, error) {
	p, err := meshcodec.Encode(m, compress)
	if err != nil {
		return nil, err
	}
	return json.Marshal(observerproto.ChunkMeshMsg{
		Type:            observerproto.TypeChunkMesh,
		ProtocolVersion: observerproto.Version,
		CX:              m.Key.CX,
		CZ:              m.Key.CZ,
		Truncated:       m.Truncated,
		Payload:         p,
	})
}

func sortedKeys(set map[store.ChunkKey]struct{}) []store.ChunkKey {
	keys := make([]store.ChunkKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	store.SortKeys(keys)
	return keys
}
