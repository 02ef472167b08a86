package world

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"voxelgate.dev/internal/observerproto"
	"voxelgate.dev/internal/sim/tuning"
	"voxelgate.dev/internal/sim/world/mesh"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

type captureTicks struct{ entries []TickLogEntry }

func (c *captureTicks) WriteTick(e TickLogEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

type captureAudits struct{ entries []AuditEntry }

func (c *captureAudits) WriteAudit(e AuditEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestStepOnceMeshesLoadedChunks(t *testing.T) {
	w := newTestWorld(t, nil)
	pos := blockPos(8, 70, 8)
	res := stepN(w, pos, 13)

	if res[0].Tick != 0 || res[12].Tick != 12 {
		t.Fatalf("ticks %d..%d", res[0].Tick, res[12].Tick)
	}
	if w.CurrentTick() != 13 {
		t.Fatalf("CurrentTick=%d want 13", w.CurrentTick())
	}
	for _, ch := range w.LoadedChunks() {
		if ch.Dirty() {
			t.Fatalf("chunk %s still dirty", ch.Key)
		}
		m, ok := w.Mesh(ch.Key)
		if !ok {
			t.Fatalf("no mesh for %s", ch.Key)
		}
		if m.Empty() {
			t.Fatalf("terrain chunk %s has an empty mesh", ch.Key)
		}
	}
	m := w.Metrics()
	if m.Tick != 13 || m.LoadedChunks != 25 || m.Meshes != 25 {
		t.Fatalf("metrics %+v", m)
	}
	if m.LoadedTotal != 25 {
		t.Fatalf("loaded_total=%d want 25", m.LoadedTotal)
	}
}

func TestMeshesDroppedOnEviction(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) { c.RenderDistance = 0 })
	w.StepOnce(blockPos(4, 70, 4), nil)
	if _, ok := w.Mesh(store.ChunkKey{}); !ok {
		t.Fatalf("centre mesh missing")
	}
	res := w.StepOnce(blockPos(16*10, 70, 4), nil)
	if len(res.Stream.Evicted) != 1 {
		t.Fatalf("evicted=%v", res.Stream.Evicted)
	}
	if _, ok := w.Mesh(store.ChunkKey{}); ok {
		t.Fatalf("evicted chunk kept its mesh")
	}
	if w.MeshStats().Meshes != 1 {
		t.Fatalf("meshes=%d want 1", w.MeshStats().Meshes)
	}
}

func TestSameSeedSamePathSameDigests(t *testing.T) {
	path := []struct{ x, z int }{{8, 8}, {8, 8}, {20, 8}, {40, -30}, {40, -30}, {-5, 2}}
	run := func() []string {
		w := newTestWorld(t, nil)
		var out []string
		for _, p := range path {
			out = append(out, w.StepOnce(blockPos(p.x, 70, p.z), nil).Digest)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d digest differs", i)
		}
	}
}

func TestTickLogAndAudit(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) { c.RenderDistance = 0 })
	ticks := &captureTicks{}
	audits := &captureAudits{}
	w.SetTickLogger(ticks)
	w.SetAuditLogger(audits)

	pos := blockPos(4, 70, 4)
	w.StepOnce(pos, nil)
	res := w.StepOnce(pos, []EditRequest{
		{SessionID: "s1", RequestID: "a", Pos: [3]int{4, 100, 4}, Block: 3},
		{SessionID: "s1", RequestID: "b", Pos: [3]int{4, 500, 4}, Block: 3},
	})

	if len(res.Edits) != 2 || !res.Edits[0].OK || res.Edits[1].OK {
		t.Fatalf("edits=%+v", res.Edits)
	}
	if res.Edits[1].Code != observerproto.ErrInvalidTarget {
		t.Fatalf("code=%q", res.Edits[1].Code)
	}
	if len(audits.entries) != 1 || audits.entries[0].To != 3 || audits.entries[0].Actor != "s1" {
		t.Fatalf("audits=%+v", audits.entries)
	}
	if len(ticks.entries) != 2 {
		t.Fatalf("tick entries=%d", len(ticks.entries))
	}
	last := ticks.entries[1]
	if last.Tick != 1 || len(last.Edits) != 1 || last.Rebuilt != 1 || last.LoadedCount != 1 {
		t.Fatalf("tick entry %+v", last)
	}
	if last.LoadedSetDigest != res.Digest {
		t.Fatalf("logged digest mismatch")
	}
}

func TestObserverSessionStream(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) {
		c.RenderDistance = 1
		c.LoadsPerTick = 9
	})
	pos := blockPos(8, 70, 8)
	w.StepOnce(pos, nil)

	tickOut := make(chan []byte, 8)
	dataOut := make(chan []byte, 256)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "O1", TickOut: tickOut, DataOut: dataOut, MaxMeshesPerTick: 4})

	w.StepOnce(pos, nil)
	if got := countType(t, dataOut, observerproto.TypeChunkMesh); got != 4 {
		t.Fatalf("first tick sent %d meshes, cap is 4", got)
	}
	w.StepOnce(pos, nil)
	w.StepOnce(pos, nil)
	if got := countType(t, dataOut, observerproto.TypeChunkMesh); got != 5 {
		t.Fatalf("snapshot remainder=%d want 5", got)
	}
	if got := countType(t, tickOut, observerproto.TypeTick); got == 0 {
		t.Fatalf("no TICK messages")
	}

	// Edit result goes back to the session that asked.
	w.StepOnce(pos, []EditRequest{{SessionID: "O1", RequestID: "e1", Pos: [3]int{8, 90, 8}, Block: 3}})
	var sawResult, sawMesh bool
	for len(dataOut) > 0 {
		b := <-dataOut
		var env struct {
			Type      string `json:"type"`
			RequestID string `json:"request_id"`
			OK        bool   `json:"ok"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		switch env.Type {
		case observerproto.TypeEditResult:
			sawResult = env.RequestID == "e1" && env.OK
		case observerproto.TypeChunkMesh:
			sawMesh = true
		}
	}
	if !sawResult || !sawMesh {
		t.Fatalf("edit result=%v remesh=%v", sawResult, sawMesh)
	}

	// Far jump: every sent chunk is evicted on the client too.
	w.StepOnce(blockPos(16*30, 70, 8), nil)
	if got := countType(t, dataOut, observerproto.TypeChunkEvict); got != 9 {
		t.Fatalf("evicts=%d want 9", got)
	}

	w.handleObserverLeave("O1")
	for range dataOut {
	}
	if w.ObserverCount() != 0 {
		t.Fatalf("session not removed")
	}
}

func countType(t *testing.T, ch chan []byte, typ string) int {
	t.Helper()
	n := 0
	for len(ch) > 0 {
		b := <-ch
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if env.Type == typ {
			n++
		}
	}
	return n
}

func TestRunStopsOnContext(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) {
		c.TickRateHz = 200
		c.RenderDistance = 0
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Pose() <- blockPos(4, 70, 4)
	deadline := time.Now().Add(5 * time.Second)
	for w.Metrics().LoadedChunks == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("world never loaded a chunk")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestNewRejectsUnknownBlockNames(t *testing.T) {
	wg := tuning.Defaults().WorldGen
	wg.Ores = append(wg.Ores, tuning.OreTier{Block: "mithril_ore", MinCount: 1, MaxCount: 1, MinY: 1, MaxY: 2, VeinSize: 1})
	_, err := New(WorldConfig{WorldGen: wg}, nil, nil)
	if err == nil {
		t.Fatalf("expected error for unknown ore block")
	}
}

func TestConfigFromTuning(t *testing.T) {
	tu := tuning.Defaults()
	seed := int64(99)
	tu.Seed = &seed
	cfg := ConfigFromTuning("w", tu)
	if cfg.Seed != 99 || cfg.ChunkSize != 16 || cfg.Height != 256 || cfg.RenderDistance != 8 {
		t.Fatalf("cfg=%+v", cfg)
	}
	w, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := w.Config(); got.MeshMaxBlocks != 16*256*16 || got.TickRateHz != 60 {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestEditRateLimitPerSession(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) {
		c.TickRateHz = 10
		c.EditsPerSecond = 2
	})
	stone := w.Blocks().MustID("stone")
	pos := blockPos(0, 80, 0)
	edit := func(session string, x int) EditRequest {
		return EditRequest{SessionID: session, Pos: [3]int{x, 100, 0}, Block: stone}
	}

	res := w.StepOnce(pos, []EditRequest{edit("a", 0), edit("a", 1), edit("a", 2), edit("b", 3)})
	codes := []string{}
	for _, o := range res.Edits {
		codes = append(codes, o.Code)
	}
	if !res.Edits[0].OK || !res.Edits[1].OK || res.Edits[2].Code != observerproto.ErrRateLimited || !res.Edits[3].OK {
		t.Fatalf("codes=%v", codes)
	}
	if got := w.GetBlock(2, 100, 0); got == stone {
		t.Fatalf("rate limited edit was applied")
	}

	// The window spans TickRateHz ticks.
	stepN(w, pos, 9)
	res = w.StepOnce(pos, []EditRequest{edit("a", 4)})
	if !res.Edits[0].OK {
		t.Fatalf("edit after window rejected: %s", res.Edits[0].Code)
	}
}

func TestEvictionRemeshesSurvivingNeighbours(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) {
		c.RenderDistance = 1
		c.Hysteresis = 1
	})
	stepN(w, blockPos(8, 70, 8), 8)
	corner := store.ChunkKey{CX: 1, CZ: 1}
	before, ok := w.Mesh(corner)
	if !ok {
		t.Fatalf("no mesh for %s", corner)
	}
	beforeQuads := before.Quads()

	// Moving to chunk (3,3) keeps (1,1) within R+hysteresis but evicts its
	// loaded neighbours (0,1) and (1,0).
	res := w.StepOnce(blockPos(3*16+8, 70, 3*16+8), nil)
	evicted := map[store.ChunkKey]bool{}
	for _, k := range res.Stream.Evicted {
		evicted[k] = true
	}
	if !evicted[store.ChunkKey{CX: 0, CZ: 1}] || !evicted[store.ChunkKey{CX: 1, CZ: 0}] || !w.IsLoaded(corner) {
		t.Fatalf("unexpected streaming result: evicted=%v", res.Stream.Evicted)
	}
	rebuilt := false
	for _, k := range res.Rebuilt {
		rebuilt = rebuilt || k == corner
	}
	if !rebuilt {
		t.Fatalf("%s not rebuilt after its neighbours were evicted: %v", corner, res.Rebuilt)
	}

	ch, _ := w.Chunk(corner)
	if ch.Dirty() {
		t.Fatalf("%s still dirty", corner)
	}
	cached, _ := w.Mesh(corner)
	fresh := mesh.Build(ch, w, w.Blocks(), mesh.Options{})
	if cached.Quads() != fresh.Quads() {
		t.Fatalf("cached quads=%d fresh=%d", cached.Quads(), fresh.Quads())
	}
	if cached.Quads() <= beforeQuads {
		t.Fatalf("border faces not re-emitted: before=%d after=%d", beforeQuads, cached.Quads())
	}
}

func TestSeed12345OriginChunkMeshAtFullHeight(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) {
		c.Height = 256
		c.RenderDistance = 0
	})
	if w.Seed() != 12345 || w.Config().ChunkSize != 16 {
		t.Fatalf("config %+v", w.Config())
	}
	res := w.StepOnce(blockPos(8, 100, 8), nil)
	if len(res.Rebuilt) != 1 || res.Rebuilt[0] != (store.ChunkKey{}) {
		t.Fatalf("rebuilt=%v", res.Rebuilt)
	}
	m, ok := w.Mesh(store.ChunkKey{})
	if !ok || m.Empty() {
		t.Fatalf("chunk (0,0) mesh missing or empty")
	}
	if m.Truncated {
		t.Fatalf("mesh truncated at the default block budget")
	}
}

func TestZeroHysteresisFallsBackToDefault(t *testing.T) {
	w := newTestWorld(t, func(c *WorldConfig) { c.Hysteresis = 0 })
	if got := w.Config().Hysteresis; got != tuning.Defaults().Hysteresis {
		t.Fatalf("hysteresis=%d want %d", got, tuning.Defaults().Hysteresis)
	}
}
