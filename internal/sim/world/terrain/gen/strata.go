package gen

import "voxelgate.dev/internal/sim/world/terrain/store"

// fillStrata lays stone, dirt, the surface cap and sea water for every column.
// Solid cells occupy y in [0, h); the top solid cell is grass above sea level
// and sand at or below it.
func (g *Generator) fillStrata(ch *store.Chunk) (minH, maxH int) {
	p := g.cfg.Palette
	size := ch.Size()
	height := ch.Height()
	x0, z0 := ch.Origin()
	minH, maxH = height, 0

	for lz := 0; lz < size; lz++ {
		for lx := 0; lx < size; lx++ {
			h := g.SurfaceHeight(x0+lx, z0+lz)
			if h < minH {
				minH = h
			}
			if h > maxH {
				maxH = h
			}
			top := p.Sand
			if h > g.cfg.SeaLevel {
				top = p.Grass
			}
			for y := 0; y < h; y++ {
				b := p.Stone
				switch {
				case y == h-1:
					b = top
				case y >= h-3:
					b = p.Dirt
				}
				ch.Blocks.Set(lx, y, lz, b)
			}
			for y := h; y < g.cfg.SeaLevel && y < height; y++ {
				ch.Blocks.Set(lx, y, lz, p.Water)
			}
		}
	}
	return minH, maxH
}
