package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/tuning"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

func newTestWorld(t *testing.T, mutate func(*WorldConfig)) *World {
	t.Helper()
	cfg := WorldConfig{
		ID:                  "test",
		ChunkSize:           16,
		Height:              128,
		RenderDistance:      2,
		Hysteresis:          2,
		SeaLevel:            64,
		Seed:                12345,
		LoadsPerTick:        2,
		MeshRebuildsPerTick: 64,
		ReseamOnLoad:        true,
		WorldGen:            tuning.Defaults().WorldGen,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg, catalogs.Default(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

// blockPos is the centre of world column (x, z) at height y.
func blockPos(x, y, z int) mgl64.Vec3 {
	return mgl64.Vec3{float64(x) + 0.5, float64(y), float64(z) + 0.5}
}

func stepN(w *World, pos mgl64.Vec3, n int) []StepResult {
	out := make([]StepResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, w.StepOnce(pos, nil))
	}
	return out
}

func within(keys []store.ChunkKey, center store.ChunkKey, r int) bool {
	for _, k := range keys {
		dx, dz := k.CX-center.CX, k.CZ-center.CZ
		if dx < -r || dx > r || dz < -r || dz > r {
			return false
		}
	}
	return true
}
