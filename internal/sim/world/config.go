package world

import (
	"voxelgate.dev/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	TickRateHz int

	ChunkSize      int
	Height         int
	RenderDistance int
	Hysteresis     int
	SeaLevel       int
	Seed           int64

	// Per-tick work caps.
	LoadsPerTick        int
	MeshRebuildsPerTick int
	MeshMaxBlocks       int // 0 = chunk volume

	ReseamOnLoad bool

	// SET_BLOCK attempts allowed per session per second of ticks; 0 = no cap.
	EditsPerSecond int

	WorldGen tuning.WorldGen
}

// ConfigFromTuning copies tuning values into a world config. The seed is
// left for the caller since tuning may not carry one.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	cfg := WorldConfig{
		ID:                  id,
		TickRateHz:          t.TickRateHz,
		ChunkSize:           t.ChunkSize,
		Height:              t.WorldHeight,
		RenderDistance:      t.RenderDistance,
		Hysteresis:          t.Hysteresis,
		SeaLevel:            t.SeaLevel,
		LoadsPerTick:        t.LoadsPerTick,
		MeshRebuildsPerTick: t.MeshRebuildsPerTick,
		MeshMaxBlocks:       t.MeshMaxBlocks,
		ReseamOnLoad:        t.ReseamOnLoad,
		EditsPerSecond:      t.EditsPerSecond,
		WorldGen:            t.WorldGen,
	}
	if t.Seed != nil {
		cfg.Seed = *t.Seed
	}
	return cfg
}

func (c *WorldConfig) applyDefaults() {
	d := tuning.Defaults()
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = d.TickRateHz
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Height <= 1 {
		c.Height = d.WorldHeight
	}
	if c.RenderDistance < 0 {
		c.RenderDistance = 0
	}
	// The eviction margin must stay strictly beyond RenderDistance.
	if c.Hysteresis <= 0 {
		c.Hysteresis = d.Hysteresis
	}
	if c.SeaLevel < 0 {
		c.SeaLevel = 0
	}
	if c.SeaLevel > c.Height {
		c.SeaLevel = c.Height
	}
	if c.LoadsPerTick <= 0 {
		c.LoadsPerTick = d.LoadsPerTick
	}
	if c.MeshRebuildsPerTick <= 0 {
		c.MeshRebuildsPerTick = d.MeshRebuildsPerTick
	}
	if c.MeshMaxBlocks <= 0 {
		c.MeshMaxBlocks = c.ChunkSize * c.Height * c.ChunkSize
	}
	if c.WorldGen.Noise == nil {
		c.WorldGen = d.WorldGen
	}
}
