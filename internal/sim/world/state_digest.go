package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// LoadedSetDigest hashes the loaded keys and the grid of each loaded chunk.
// Two runs that stream the same observer path over the same seed and edits
// produce the same digest every tick.
func (w *World) LoadedSetDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, w.cfg.Seed)
	digestWriteU64(h, &tmp, uint64(len(w.loaded)))
	for _, ch := range w.LoadedChunks() {
		digestWriteI64(h, &tmp, int64(ch.Key.CX))
		digestWriteI64(h, &tmp, int64(ch.Key.CZ))
		d := ch.Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
