package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelgate.dev/internal/sim/world/terrain/noise"
)

type Tuning struct {
	TickRateHz     int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	ChunkSize      int `yaml:"chunk_size" json:"chunk_size"`
	WorldHeight    int `yaml:"world_height" json:"world_height"`
	RenderDistance int `yaml:"render_distance" json:"render_distance"`
	Hysteresis     int `yaml:"hysteresis" json:"hysteresis"`
	SeaLevel       int `yaml:"sea_level" json:"sea_level"`

	// Seed is optional; nil means pick one at startup.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	LoadsPerTick        int  `yaml:"loads_per_tick" json:"loads_per_tick"`
	MeshRebuildsPerTick int  `yaml:"mesh_rebuilds_per_tick" json:"mesh_rebuilds_per_tick"`
	MeshMaxBlocks       int  `yaml:"mesh_max_blocks" json:"mesh_max_blocks"` // 0 = chunk volume
	ReseamOnLoad        bool `yaml:"reseam_on_load" json:"reseam_on_load"`

	// EditsPerSecond caps SET_BLOCK per session; 0 disables the cap.
	EditsPerSecond int `yaml:"edits_per_second" json:"edits_per_second"`

	WorldGen WorldGen `yaml:"worldgen" json:"worldgen"`
}

type WorldGen struct {
	BaseLevel int           `yaml:"base_level" json:"base_level"`
	Noise     []noise.Layer `yaml:"noise" json:"noise"`
	Jitter    [3]int        `yaml:"vein_jitter" json:"vein_jitter"`
	Ores      []OreTier     `yaml:"ores" json:"ores"`
	Features  []Feature     `yaml:"features" json:"features"`
	Gate      Gate          `yaml:"gate" json:"gate"`
}

type OreTier struct {
	Block    string `yaml:"block" json:"block"`
	MinCount int    `yaml:"min_count" json:"min_count"`
	MaxCount int    `yaml:"max_count" json:"max_count"`
	MinY     int    `yaml:"min_y" json:"min_y"`
	MaxY     int    `yaml:"max_y" json:"max_y"`
	VeinSize int    `yaml:"vein_size" json:"vein_size"`
}

type Feature struct {
	Block    string `yaml:"block" json:"block"`
	MinCount int    `yaml:"min_count" json:"min_count"`
	MaxCount int    `yaml:"max_count" json:"max_count"`
	MinY     int    `yaml:"min_y" json:"min_y"`
	MaxY     int    `yaml:"max_y" json:"max_y"`
}

type Gate struct {
	Block    string  `yaml:"block" json:"block"`
	Chance   float64 `yaml:"chance" json:"chance"`
	Attempts int     `yaml:"attempts" json:"attempts"`
	Margin   int     `yaml:"margin" json:"margin"`
	Width    int     `yaml:"width" json:"width"`
	Height   int     `yaml:"height" json:"height"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          60,
		ChunkSize:           16,
		WorldHeight:         256,
		RenderDistance:      8,
		Hysteresis:          2,
		SeaLevel:            64,
		LoadsPerTick:        2,
		MeshRebuildsPerTick: 16,
		ReseamOnLoad:        true,
		EditsPerSecond:      20,
		WorldGen: WorldGen{
			BaseLevel: 64,
			Noise: []noise.Layer{
				{Frequency: 0.01, Amplitude: 50},
				{Frequency: 0.005, Amplitude: 30},
			},
			Jitter: [3]int{2, 1, 2},
			Ores: []OreTier{
				{Block: "coal_ore", MinCount: 5, MaxCount: 14, MinY: 5, MaxY: 59, VeinSize: 3},
				{Block: "iron_ore", MinCount: 3, MaxCount: 7, MinY: 5, MaxY: 39, VeinSize: 2},
				{Block: "diamond_ore", MinCount: 1, MaxCount: 2, MinY: 5, MaxY: 19, VeinSize: 1},
			},
			Features: []Feature{
				{Block: "shadow_stone", MinCount: 0, MaxCount: 1, MinY: 5, MaxY: 29},
				{Block: "mana_crystal", MinCount: 1, MaxCount: 3, MinY: 10, MaxY: 49},
			},
			Gate: Gate{
				Block:    "gate_stone",
				Chance:   0.001,
				Attempts: 10,
				Margin:   2,
				Width:    3,
				Height:   5,
			},
		},
	}
}

// Load overlays the file on Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(t.TickRateHz > 0 && t.TickRateHz <= 1000, "tick_rate_hz must be in 1..1000 (got %d)", t.TickRateHz)
	check(t.ChunkSize > 0, "chunk_size must be positive (got %d)", t.ChunkSize)
	check(t.WorldHeight >= 2, "world_height must be >= 2 (got %d)", t.WorldHeight)
	check(t.RenderDistance >= 0, "render_distance must be >= 0 (got %d)", t.RenderDistance)
	check(t.Hysteresis >= 1, "hysteresis must be >= 1 (got %d)", t.Hysteresis)
	check(t.SeaLevel >= 0 && t.SeaLevel < t.WorldHeight, "sea_level must be in [0, world_height) (got %d)", t.SeaLevel)
	check(t.LoadsPerTick > 0, "loads_per_tick must be positive (got %d)", t.LoadsPerTick)
	check(t.MeshRebuildsPerTick > 0, "mesh_rebuilds_per_tick must be positive (got %d)", t.MeshRebuildsPerTick)
	check(t.MeshMaxBlocks >= 0, "mesh_max_blocks must be >= 0 (got %d)", t.MeshMaxBlocks)
	check(t.EditsPerSecond >= 0, "edits_per_second must be >= 0 (got %d)", t.EditsPerSecond)

	wg := t.WorldGen
	for _, l := range wg.Noise {
		check(l.Frequency > 0 && l.Amplitude >= 0, "noise layer needs frequency > 0 and amplitude >= 0 (got %v)", l)
	}
	for i, j := range wg.Jitter {
		check(j >= 0, "vein_jitter[%d] must be >= 0", i)
	}
	for _, o := range wg.Ores {
		check(o.Block != "", "ore tier without block")
		check(o.MinCount >= 0 && o.MinCount <= o.MaxCount, "ore %s: bad count range %d..%d", o.Block, o.MinCount, o.MaxCount)
		check(o.MinY <= o.MaxY, "ore %s: bad y range %d..%d", o.Block, o.MinY, o.MaxY)
		check(o.VeinSize >= 0, "ore %s: vein_size must be >= 0", o.Block)
	}
	for _, f := range wg.Features {
		check(f.Block != "", "feature without block")
		check(f.MinCount >= 0 && f.MinCount <= f.MaxCount, "feature %s: bad count range %d..%d", f.Block, f.MinCount, f.MaxCount)
		check(f.MinY <= f.MaxY, "feature %s: bad y range %d..%d", f.Block, f.MinY, f.MaxY)
	}
	g := wg.Gate
	check(g.Chance >= 0 && g.Chance <= 1, "gate.chance must be in [0,1] (got %v)", g.Chance)
	if g.Chance > 0 {
		check(g.Block != "", "gate.block required")
		check(g.Attempts > 0, "gate.attempts must be positive")
		check(g.Width >= 3 && g.Height >= 2, "gate frame must be at least 3x2 (got %dx%d)", g.Width, g.Height)
		check(g.Margin >= 0 && 2*g.Margin < t.ChunkSize, "gate.margin leaves no room in a %d chunk", t.ChunkSize)
	}
	return errors.Join(errs...)
}
