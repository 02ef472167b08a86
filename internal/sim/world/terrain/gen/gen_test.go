package gen

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"voxelgate.dev/internal/sim/world/terrain/noise"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

const (
	idAir         = 0
	idGrass       = 1
	idDirt        = 2
	idStone       = 3
	idWater       = 6
	idSand        = 7
	idCoal        = 9
	idIron        = 10
	idDiamond     = 12
	idShadowStone = 13
	idGateStone   = 14
	idManaCrystal = 15
)

func testConfig(seed int64) Config {
	return Config{
		Seed:      seed,
		ChunkSize: 16,
		Height:    256,
		SeaLevel:  64,
		BaseLevel: 64,
		Noise: []noise.Layer{
			{Frequency: 0.01, Amplitude: 50},
			{Frequency: 0.005, Amplitude: 30},
		},
		Jitter: [3]int{2, 1, 2},
		Palette: Palette{
			Air: idAir, Grass: idGrass, Dirt: idDirt, Stone: idStone,
			Water: idWater, Sand: idSand, GateStone: idGateStone,
		},
		Ores: []OreTier{
			{Name: "coal_ore", Block: idCoal, MinCount: 5, MaxCount: 14, MinY: 5, MaxY: 59, VeinSize: 3},
			{Name: "iron_ore", Block: idIron, MinCount: 3, MaxCount: 7, MinY: 5, MaxY: 39, VeinSize: 2},
			{Name: "diamond_ore", Block: idDiamond, MinCount: 1, MaxCount: 2, MinY: 5, MaxY: 19, VeinSize: 1},
		},
		Features: []Feature{
			{Name: "shadow_stone", Block: idShadowStone, MinCount: 0, MaxCount: 1, MinY: 5, MaxY: 29},
			{Name: "mana_crystal", Block: idManaCrystal, MinCount: 1, MaxCount: 3, MinY: 10, MaxY: 49},
		},
		Gate: GateSpec{Chance: 0.001, Attempts: 10, Margin: 2, Width: 3, Height: 5},
	}
}

func generate(t *testing.T, g *Generator, k store.ChunkKey) (*store.Chunk, Report) {
	t.Helper()
	ch := store.NewChunk(k, 16, 256)
	rep, ok := g.Generate(ch)
	if !ok {
		t.Fatalf("generate %v: not generated", k)
	}
	return ch, rep
}

func TestGenerateDeterministic(t *testing.T) {
	k := store.ChunkKey{CX: 3, CZ: -7}
	a, _ := generate(t, New(testConfig(12345)), k)
	b, _ := generate(t, New(testConfig(12345)), k)
	if a.Digest() != b.Digest() {
		t.Fatalf("same seed and key produced different chunks")
	}
	c, _ := generate(t, New(testConfig(12346)), k)
	if a.Digest() == c.Digest() {
		t.Fatalf("different seeds produced identical chunks")
	}
}

func TestGenerateIsOrderIndependent(t *testing.T) {
	g := New(testConfig(99))
	k1 := store.ChunkKey{CX: 0, CZ: 0}
	k2 := store.ChunkKey{CX: 1, CZ: 0}
	a1, _ := generate(t, g, k1)
	_, _ = generate(t, g, k2)
	a2, _ := generate(t, g, k1)
	if a1.Digest() != a2.Digest() {
		t.Fatalf("generating a neighbour changed the result for %v", k1)
	}
}

func TestGenerateRunsOnce(t *testing.T) {
	g := New(testConfig(1))
	ch, _ := generate(t, g, store.ChunkKey{})
	before := ch.Digest()
	if _, ok := g.Generate(ch); ok {
		t.Fatalf("second generate should be a no-op")
	}
	if ch.Digest() != before {
		t.Fatalf("second generate mutated the chunk")
	}
}

func TestSeed12345OriginColumns(t *testing.T) {
	g := New(testConfig(12345))
	ch, rep := generate(t, g, store.ChunkKey{})

	gateCols := map[[2]int]bool{}
	for _, s := range rep.Gates {
		for dx := -1; dx <= 1; dx++ {
			gateCols[[2]int{s.X + dx, s.Z}] = true
		}
	}

	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			if ch.Get(x, 0, z) == idAir {
				t.Fatalf("column (%d,%d) has air at y=0", x, z)
			}
			if gateCols[[2]int{x, z}] {
				continue
			}
			top := -1
			for y := 255; y >= 0; y-- {
				if ch.Get(x, y, z) != idAir {
					top = y
					break
				}
			}
			switch b := ch.Get(x, top, z); b {
			case idGrass, idSand, idWater:
			default:
				t.Fatalf("column (%d,%d) topmost block %d at y=%d", x, z, b, top)
			}
		}
	}
}

func TestStrataLayering(t *testing.T) {
	cfg := testConfig(4242)
	cfg.Ores = nil
	cfg.Features = nil
	cfg.Gate.Chance = 0
	g := New(cfg)
	ch, rep := generate(t, g, store.ChunkKey{CX: -2, CZ: 5})
	if rep.MinSurface < 1 || rep.MaxSurface > 255 {
		t.Fatalf("surface out of range: %d..%d", rep.MinSurface, rep.MaxSurface)
	}
	x0, z0 := ch.Origin()
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			h := g.SurfaceHeight(x0+x, z0+z)
			for y := 0; y < 256; y++ {
				want := uint8(idAir)
				switch {
				case y < h-3:
					want = idStone
				case y < h-1:
					want = idDirt
				case y == h-1:
					want = idSand
					if h > 64 {
						want = idGrass
					}
				case y < 64:
					want = idWater
				}
				if got := ch.Get(x, y, z); got != want {
					t.Fatalf("(%d,%d,%d) h=%d got %d want %d", x, y, z, h, got, want)
				}
			}
		}
	}
}

func TestOresAndFeaturesOnlyReplaceStone(t *testing.T) {
	k := store.ChunkKey{CX: 8, CZ: 8}
	bare := testConfig(777)
	bare.Ores = nil
	bare.Features = nil
	bare.Gate.Chance = 0
	base, _ := generate(t, New(bare), k)

	full := testConfig(777)
	full.Gate.Chance = 0
	ch, rep := generate(t, New(full), k)

	changed := 0
	for y := 0; y < 256; y++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				a, b := base.Get(x, y, z), ch.Get(x, y, z)
				if a == b {
					continue
				}
				changed++
				if a != idStone {
					t.Fatalf("(%d,%d,%d) converted from %d, want stone", x, y, z, a)
				}
				switch b {
				case idCoal, idIron, idDiamond, idShadowStone, idManaCrystal:
				default:
					t.Fatalf("(%d,%d,%d) converted to unexpected block %d", x, y, z, b)
				}
			}
		}
	}
	total := 0
	for _, n := range rep.Ores {
		total += n
	}
	for _, n := range rep.Features {
		total += n
	}
	// Veins may overlap, so the report can only over-count.
	if changed > total {
		t.Fatalf("changed=%d exceeds reported=%d", changed, total)
	}
}

func TestGateStampedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(5)
	cfg.Gate.Chance = 1
	cfg.Logger = log.New(&buf, "", 0)
	g := New(cfg)
	ch, rep := generate(t, g, store.ChunkKey{CX: 1, CZ: 2})
	if len(rep.Gates) != 1 {
		t.Fatalf("gates=%d want 1", len(rep.Gates))
	}
	s := rep.Gates[0]
	x0, z0 := ch.Origin()
	lx, lz := s.X-x0, s.Z-z0
	if lx < 2 || lx >= 14 || lz < 2 || lz >= 14 {
		t.Fatalf("gate column (%d,%d) outside margin", lx, lz)
	}
	for gx := 0; gx < 3; gx++ {
		for gy := 0; gy < 5; gy++ {
			want := uint8(idAir)
			if gx == 0 || gx == 2 || gy == 4 {
				want = idGateStone
			}
			if got := ch.Get(lx-1+gx, s.Y+gy, lz); got != want {
				t.Fatalf("frame cell gx=%d gy=%d got %d want %d", gx, gy, got, want)
			}
		}
	}
	if !strings.Contains(buf.String(), "gate spawned chunk=(1,2)") {
		t.Fatalf("gate spawn not logged: %q", buf.String())
	}
}

func TestOutOfRangeTiersAreSkipped(t *testing.T) {
	cfg := testConfig(3)
	cfg.Height = 32
	cfg.SeaLevel = 16
	cfg.BaseLevel = 16
	cfg.Ores = []OreTier{{Name: "coal_ore", Block: idCoal, MinCount: 20, MaxCount: 20, MinY: 20, MaxY: 500, VeinSize: 4}}
	g := New(cfg)
	ch := store.NewChunk(store.ChunkKey{}, 16, 32)
	if _, ok := g.Generate(ch); !ok {
		t.Fatalf("generate failed")
	}
	for y := 0; y < 32; y++ {
		if ch.Get(0, y, 0) > idManaCrystal {
			t.Fatalf("unexpected block id at y=%d", y)
		}
	}
}
