package mesh

import "github.com/go-gl/mathgl/mgl32"

type Face uint8

const (
	FaceTop Face = iota
	FaceBottom
	FaceRight // +x
	FaceLeft  // -x
	FaceFront // +z
	FaceBack  // -z
)

var faceNames = [...]string{"top", "bottom", "right", "left", "front", "back"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return "unknown"
}

type faceDef struct {
	dir     [3]int
	normal  mgl32.Vec3
	corners [4]mgl32.Vec3 // offsets from the block's min corner
}

// Corners are counter-clockwise seen from outside the block, so
// (c1-c0) x (c2-c0) points along the face normal.
var faces = [6]faceDef{
	FaceTop: {
		dir:     [3]int{0, 1, 0},
		normal:  mgl32.Vec3{0, 1, 0},
		corners: [4]mgl32.Vec3{{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	},
	FaceBottom: {
		dir:     [3]int{0, -1, 0},
		normal:  mgl32.Vec3{0, -1, 0},
		corners: [4]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	},
	FaceRight: {
		dir:     [3]int{1, 0, 0},
		normal:  mgl32.Vec3{1, 0, 0},
		corners: [4]mgl32.Vec3{{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	},
	FaceLeft: {
		dir:     [3]int{-1, 0, 0},
		normal:  mgl32.Vec3{-1, 0, 0},
		corners: [4]mgl32.Vec3{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	},
	FaceFront: {
		dir:     [3]int{0, 0, 1},
		normal:  mgl32.Vec3{0, 0, 1},
		corners: [4]mgl32.Vec3{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	},
	FaceBack: {
		dir:     [3]int{0, 0, -1},
		normal:  mgl32.Vec3{0, 0, -1},
		corners: [4]mgl32.Vec3{{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	},
}

// quadIndices triangulates one face; add the face's base vertex index.
var quadIndices = [6]uint32{0, 1, 2, 0, 2, 3}
