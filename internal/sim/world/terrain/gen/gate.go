package gen

import (
	"math/rand/v2"

	"voxelgate.dev/internal/sim/world/terrain/store"
)

// maybeGate rolls the per-chunk gate chance and, on success, stamps one
// frame on the first sampled column that has ground. The frame lies in the
// x/y plane: border cells are gate stone, interior cells are cleared to air.
func (g *Generator) maybeGate(ch *store.Chunk, r *rand.Rand, rep *Report) {
	spec := g.cfg.Gate
	if spec.Chance <= 0 || r.Float64() >= spec.Chance {
		return
	}
	size := ch.Size()
	span := size - 2*spec.Margin
	if span <= 0 || spec.Width <= 0 || spec.Height <= 0 {
		return
	}
	p := g.cfg.Palette

	for attempt := 0; attempt < spec.Attempts; attempt++ {
		x := spec.Margin + r.IntN(span)
		z := spec.Margin + r.IntN(span)
		y := g.topSolid(ch, x, z)
		if y < 0 {
			continue
		}

		left := x - spec.Width/2
		for gx := 0; gx < spec.Width; gx++ {
			for gy := 0; gy < spec.Height; gy++ {
				b := p.Air
				if gx == 0 || gx == spec.Width-1 || gy == spec.Height-1 {
					b = p.GateStone
				}
				ch.Blocks.Set(left+gx, y+1+gy, z, b)
			}
		}

		x0, z0 := ch.Origin()
		site := GateSite{Chunk: ch.Key, X: x0 + x, Y: y + 1, Z: z0 + z}
		rep.Gates = append(rep.Gates, site)
		if g.cfg.Logger != nil {
			g.cfg.Logger.Printf("gate spawned chunk=%s pos=(%d,%d,%d)", ch.Key, site.X, site.Y, site.Z)
		}
		return
	}
}

// topSolid returns the highest non-air y in the column above bedrock, or -1.
func (g *Generator) topSolid(ch *store.Chunk, x, z int) int {
	air := g.cfg.Palette.Air
	for y := ch.Height() - 1; y > 0; y-- {
		if ch.Blocks.Get(x, y, z) != air {
			return y
		}
	}
	return -1
}
