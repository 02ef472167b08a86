// Package mesh turns chunk blocks into render-ready geometry: one quad per
// visible block face, coloured from the block palette.
package mesh

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"voxelgate.dev/internal/sim/world/terrain/store"
)

// FloatsPerVertex is the width of the interleaved layout: position (3),
// colour (4), normal (3).
const FloatsPerVertex = 10

type Vertex struct {
	Pos    mgl32.Vec3
	Color  mgl32.Vec4
	Normal mgl32.Vec3
}

type Mesh struct {
	Key       store.ChunkKey
	Vertices  []Vertex
	Indices   []uint32
	Truncated bool
}

func (m *Mesh) Empty() bool { return len(m.Indices) == 0 }
func (m *Mesh) Quads() int  { return len(m.Indices) / 6 }

// Interleaved flattens vertices into the GPU layout.
func (m *Mesh) Interleaved() []float32 {
	out := make([]float32, 0, len(m.Vertices)*FloatsPerVertex)
	for _, v := range m.Vertices {
		out = append(out, v.Pos[:]...)
		out = append(out, v.Color[:]...)
		out = append(out, v.Normal[:]...)
	}
	return out
}

type Palette interface {
	Color(id uint8) [4]float32
	SeeThrough(id uint8) bool
}

// Neighbors resolves world-space blocks outside the chunk being meshed.
// ok is false when the owning chunk is not loaded.
type Neighbors interface {
	NeighborBlock(x, y, z int) (id uint8, ok bool)
}

type Options struct {
	// MaxBlocks caps solid blocks emitted per chunk; 0 means no cap.
	MaxBlocks int
	// Optional.
	Logger *log.Logger
}

// Build meshes ch in world space. It never mutates the chunk. A face is
// emitted when the neighbour cell is see-through, lies above or below the
// world, or belongs to an unloaded chunk.
func Build(ch *store.Chunk, nb Neighbors, pal Palette, opts Options) Mesh {
	m := Mesh{Key: ch.Key}
	size := ch.Size()
	height := ch.Height()
	ox, oz := ch.Origin()

	emitted := 0
	for y := 0; y < height; y++ {
		for z := 0; z < size; z++ {
			for x := 0; x < size; x++ {
				id := ch.Get(x, y, z)
				if id == store.Air {
					continue
				}
				if opts.MaxBlocks > 0 && emitted >= opts.MaxBlocks {
					m.Truncated = true
					if opts.Logger != nil {
						opts.Logger.Printf("mesh chunk=%s truncated at %d blocks", ch.Key, opts.MaxBlocks)
					}
					return m
				}
				emitted++

				color := mgl32.Vec4(pal.Color(id))
				base := mgl32.Vec3{float32(ox + x), float32(y), float32(oz + z)}
				for f := range faces {
					fd := &faces[f]
					if !faceVisible(ch, nb, pal, x+fd.dir[0], y+fd.dir[1], z+fd.dir[2]) {
						continue
					}
					start := uint32(len(m.Vertices))
					for _, c := range fd.corners {
						m.Vertices = append(m.Vertices, Vertex{Pos: base.Add(c), Color: color, Normal: fd.normal})
					}
					for _, i := range quadIndices {
						m.Indices = append(m.Indices, start+i)
					}
				}
			}
		}
	}
	return m
}

func faceVisible(ch *store.Chunk, nb Neighbors, pal Palette, x, y, z int) bool {
	if y < 0 || y >= ch.Height() {
		return true
	}
	size := ch.Size()
	if x >= 0 && x < size && z >= 0 && z < size {
		return pal.SeeThrough(ch.Get(x, y, z))
	}
	if nb == nil {
		return true
	}
	ox, oz := ch.Origin()
	id, ok := nb.NeighborBlock(ox+x, y, oz+z)
	if !ok {
		return true
	}
	return pal.SeeThrough(id)
}

// Rebuild meshes a dirty chunk and marks it clean. Clean chunks are skipped.
func Rebuild(ch *store.Chunk, nb Neighbors, pal Palette, opts Options) (Mesh, bool) {
	if ch == nil || !ch.Dirty() {
		return Mesh{}, false
	}
	m := Build(ch, nb, pal, opts)
	ch.MarkClean()
	return m, true
}
