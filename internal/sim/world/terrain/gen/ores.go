package gen

import (
	"math/rand/v2"

	"voxelgate.dev/internal/sim/world/terrain/store"
)

// placeOres runs every tier in order. A vein is seeded only where the anchor
// is stone; each scattered cell converts only if it is stone too.
func (g *Generator) placeOres(ch *store.Chunk, r *rand.Rand, rep *Report) {
	size := ch.Size()
	stone := g.cfg.Palette.Stone
	jx, jy, jz := g.cfg.Jitter[0], g.cfg.Jitter[1], g.cfg.Jitter[2]

	for _, tier := range g.cfg.Ores {
		count := between(r, tier.MinCount, tier.MaxCount)
		for i := 0; i < count; i++ {
			x := r.IntN(size)
			y := between(r, tier.MinY, tier.MaxY)
			z := r.IntN(size)
			if !ch.Blocks.InBounds(x, y, z) || ch.Blocks.Get(x, y, z) != stone {
				continue
			}
			ch.Blocks.Set(x, y, z, tier.Block)
			rep.Ores[tier.Name]++
			for v := 0; v < tier.VeinSize; v++ {
				vx := x + between(r, -jx, jx)
				vy := y + between(r, -jy, jy)
				vz := z + between(r, -jz, jz)
				if !ch.Blocks.InBounds(vx, vy, vz) || ch.Blocks.Get(vx, vy, vz) != stone {
					continue
				}
				ch.Blocks.Set(vx, vy, vz, tier.Block)
				rep.Ores[tier.Name]++
			}
		}
	}
}

// placeFeatures embeds rare single blocks. Only stone is replaced so features
// never float above the surface or sit in open water.
func (g *Generator) placeFeatures(ch *store.Chunk, r *rand.Rand, rep *Report) {
	size := ch.Size()
	stone := g.cfg.Palette.Stone
	for _, f := range g.cfg.Features {
		count := between(r, f.MinCount, f.MaxCount)
		for i := 0; i < count; i++ {
			x := r.IntN(size)
			y := between(r, f.MinY, f.MaxY)
			z := r.IntN(size)
			if !ch.Blocks.InBounds(x, y, z) || ch.Blocks.Get(x, y, z) != stone {
				continue
			}
			ch.Blocks.Set(x, y, z, f.Block)
			rep.Features[f.Name]++
		}
	}
}
