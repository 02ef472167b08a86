package mathx

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Chebyshev is the chessboard distance between two chunk coordinates.
func Chebyshev(ax, az, bx, bz int) int {
	dx := AbsInt(ax - bx)
	dz := AbsInt(az - bz)
	if dx > dz {
		return dx
	}
	return dz
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash3 mixes the full 64-bit coordinates, so keys 2^32 apart never share
// a hash input.
func Hash3(seed int64, x, y, z int) uint64 {
	v := uint64(seed) ^ (uint64(x) * 0x9e3779b97f4a7c15) ^ (uint64(y) * 0xc2b2ae3d27d4eb4f) ^ (uint64(z) * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// StreamSeeds derives the two 64-bit words of a per-chunk, per-pass random
// stream. Equal inputs always yield equal words.
func StreamSeeds(seed int64, cx, cz int, salt uint64) (uint64, uint64) {
	a := Hash3(seed, cx, int(salt), cz)
	b := mix64(a ^ (salt * 0xd6e8feb86659fd93))
	return a, b
}
