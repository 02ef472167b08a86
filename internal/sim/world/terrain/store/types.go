package store

import (
	"crypto/sha256"
	"fmt"
)

// Air is block identifier 0 in every palette.
const Air uint8 = 0

type ChunkKey struct {
	CX int
	CZ int
}

func (k ChunkKey) String() string { return fmt.Sprintf("(%d,%d)", k.CX, k.CZ) }

// Grid is a dense sx*sy*sz block array. Out-of-range reads return Air and
// out-of-range writes are rejected.
type Grid struct {
	sx, sy, sz int
	cells      []uint8 // x fastest, then z, then y
}

func NewGrid(sx, sy, sz int) *Grid {
	return &Grid{sx: sx, sy: sy, sz: sz, cells: make([]uint8, sx*sy*sz)}
}

func (g *Grid) Dims() (sx, sy, sz int) { return g.sx, g.sy, g.sz }

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.sx && y >= 0 && y < g.sy && z >= 0 && z < g.sz
}

func (g *Grid) index(x, y, z int) int {
	return x + g.sx*(z+g.sz*y)
}

func (g *Grid) Get(x, y, z int) uint8 {
	if !g.InBounds(x, y, z) {
		return Air
	}
	return g.cells[g.index(x, y, z)]
}

func (g *Grid) Set(x, y, z int, b uint8) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	g.cells[g.index(x, y, z)] = b
	return true
}

// Cells exposes the backing array in YZX order. Callers must not resize it.
func (g *Grid) Cells() []uint8 { return g.cells }

// MeshState tracks whether a chunk's render mesh reflects its blocks.
type MeshState uint8

const (
	MeshDirty MeshState = iota
	MeshClean
)

func (s MeshState) String() string {
	if s == MeshClean {
		return "clean"
	}
	return "dirty"
}

type Chunk struct {
	Key    ChunkKey
	Blocks *Grid

	generated bool
	mesh      MeshState

	hashValid bool
	hash      [32]byte
}

func NewChunk(key ChunkKey, size, height int) *Chunk {
	return &Chunk{
		Key:    key,
		Blocks: NewGrid(size, height, size),
		mesh:   MeshDirty,
	}
}

func (c *Chunk) Size() int   { return c.Blocks.sx }
func (c *Chunk) Height() int { return c.Blocks.sy }

// Origin is the world-space block coordinate of local (0, 0, 0).
func (c *Chunk) Origin() (x, z int) {
	return c.Key.CX * c.Blocks.sx, c.Key.CZ * c.Blocks.sz
}

func (c *Chunk) Get(x, y, z int) uint8 { return c.Blocks.Get(x, y, z) }

// Set writes a block in local coordinates and marks the mesh dirty.
func (c *Chunk) Set(x, y, z int, b uint8) bool {
	if !c.Blocks.Set(x, y, z, b) {
		return false
	}
	c.mesh = MeshDirty
	c.hashValid = false
	return true
}

func (c *Chunk) Generated() bool { return c.generated }

// MarkGenerated is called once by the generator after all passes ran.
func (c *Chunk) MarkGenerated() {
	c.generated = true
	c.mesh = MeshDirty
	c.hashValid = false
}

func (c *Chunk) MeshState() MeshState { return c.mesh }
func (c *Chunk) Dirty() bool          { return c.mesh == MeshDirty }
func (c *Chunk) MarkDirty()           { c.mesh = MeshDirty }
func (c *Chunk) MarkClean()           { c.mesh = MeshClean }

func (c *Chunk) Digest() [32]byte {
	if !c.hashValid {
		c.hash = sha256.Sum256(c.Blocks.cells)
		c.hashValid = true
	}
	return c.hash
}
