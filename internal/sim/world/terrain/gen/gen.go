// Package gen fills chunks with terrain. Generation is a pure function of
// (seed, chunk key): no pass reads global or shared mutable state.
package gen

import (
	"log"
	"math"
	"math/rand/v2"

	"voxelgate.dev/internal/sim/world/logic/mathx"
	"voxelgate.dev/internal/sim/world/terrain/noise"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// Palette holds the block ids the strata and gate passes write.
type Palette struct {
	Air       uint8
	Grass     uint8
	Dirt      uint8
	Stone     uint8
	Water     uint8
	Sand      uint8
	GateStone uint8
}

// OreTier converts stone into veins. Counts and Y bounds are inclusive.
type OreTier struct {
	Name     string
	Block    uint8
	MinCount int
	MaxCount int
	MinY     int
	MaxY     int
	VeinSize int
}

// Feature scatters single blocks into stone. Counts and Y bounds are inclusive.
type Feature struct {
	Name     string
	Block    uint8
	MinCount int
	MaxCount int
	MinY     int
	MaxY     int
}

type GateSpec struct {
	Chance   float64
	Attempts int
	Margin   int
	Width    int
	Height   int
}

type Config struct {
	Seed      int64
	ChunkSize int
	Height    int
	SeaLevel  int
	BaseLevel int
	Noise     []noise.Layer

	// Vein scatter radius per axis (x, y, z).
	Jitter [3]int

	Palette  Palette
	Ores     []OreTier
	Features []Feature
	Gate     GateSpec

	// Optional.
	Logger *log.Logger
}

type Generator struct {
	cfg   Config
	field *noise.Field
}

// pass salts keep each pass on its own stream so adding draws to one pass
// never shifts another.
const (
	saltOres uint64 = iota + 1
	saltFeatures
	saltGate
)

func New(cfg Config) *Generator {
	return &Generator{
		cfg:   cfg,
		field: noise.New(cfg.Seed, cfg.Noise...),
	}
}

func (g *Generator) Seed() int64 { return g.cfg.Seed }

// GateSite is where a gate frame was stamped, in world coordinates of the
// frame's bottom-centre cell.
type GateSite struct {
	Chunk store.ChunkKey `json:"chunk"`
	X     int            `json:"x"`
	Y     int            `json:"y"`
	Z     int            `json:"z"`
}

type Report struct {
	Key        store.ChunkKey
	MinSurface int
	MaxSurface int
	Ores       map[string]int
	Features   map[string]int
	Gates      []GateSite
}

// SurfaceHeight is the number of solid cells in the column at world (x, z),
// clamped to [1, H-1].
func (g *Generator) SurfaceHeight(x, z int) int {
	v := float64(g.cfg.BaseLevel) + g.field.Sample(float64(x), float64(z))*g.field.Scale()
	return mathx.ClampInt(int(math.Floor(v)), 1, g.cfg.Height-1)
}

// Generate runs every pass on an ungenerated chunk. It returns false and does
// nothing when the chunk was already generated.
func (g *Generator) Generate(ch *store.Chunk) (Report, bool) {
	if ch == nil || ch.Generated() {
		return Report{}, false
	}
	rep := Report{
		Key:      ch.Key,
		Ores:     map[string]int{},
		Features: map[string]int{},
	}
	rep.MinSurface, rep.MaxSurface = g.fillStrata(ch)
	g.placeOres(ch, g.stream(ch.Key, saltOres), &rep)
	g.placeFeatures(ch, g.stream(ch.Key, saltFeatures), &rep)
	g.maybeGate(ch, g.stream(ch.Key, saltGate), &rep)
	ch.MarkGenerated()
	return rep, true
}

func (g *Generator) stream(k store.ChunkKey, salt uint64) *rand.Rand {
	a, b := mathx.StreamSeeds(g.cfg.Seed, k.CX, k.CZ, salt)
	return rand.New(rand.NewPCG(a, b))
}

// between returns a uniform int in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
