package store

import "testing"

func TestGridOutOfRange(t *testing.T) {
	g := NewGrid(16, 256, 16)
	if g.Set(0, 256, 0, 3) {
		t.Fatalf("write above height accepted")
	}
	if g.Set(-1, 0, 0, 3) || g.Set(0, 0, 16, 3) {
		t.Fatalf("write outside horizontal bounds accepted")
	}
	if b := g.Get(0, -1, 0); b != Air {
		t.Fatalf("read below world=%d want air", b)
	}
	if !g.Set(15, 255, 15, 7) || g.Get(15, 255, 15) != 7 {
		t.Fatalf("corner write/read failed")
	}
	if len(g.Cells()) != 16*256*16 {
		t.Fatalf("cells=%d", len(g.Cells()))
	}
}

func TestChunkSetMarksDirtyAndRehashes(t *testing.T) {
	ch := NewChunk(ChunkKey{CX: 2, CZ: -1}, 16, 64)
	if !ch.Dirty() {
		t.Fatalf("new chunk should start dirty")
	}
	before := ch.Digest()
	ch.MarkClean()
	if !ch.Set(1, 2, 3, 5) {
		t.Fatalf("set failed")
	}
	if !ch.Dirty() {
		t.Fatalf("set should mark the mesh dirty")
	}
	if ch.Digest() == before {
		t.Fatalf("digest did not change after edit")
	}
	ch.MarkClean()
	if ch.Set(1, 64, 3, 5) {
		t.Fatalf("out of range set accepted")
	}
	if ch.Dirty() {
		t.Fatalf("rejected set must not dirty the chunk")
	}
	x, z := ch.Origin()
	if x != 32 || z != -16 {
		t.Fatalf("origin=(%d,%d)", x, z)
	}
}

func TestChunkStoreInsertErase(t *testing.T) {
	s := NewChunkStore(16, 32)
	k := ChunkKey{CX: -1, CZ: 4}
	if _, ok := s.Get(k); ok {
		t.Fatalf("lookup must not create chunks")
	}
	a, created := s.Insert(k)
	if !created || a == nil {
		t.Fatalf("insert on miss did not create")
	}
	b, created := s.Insert(k)
	if created || a != b {
		t.Fatalf("second insert should return the resident chunk")
	}
	s.Insert(ChunkKey{CX: -2, CZ: 9})
	keys := s.Keys()
	if len(keys) != 2 || keys[0] != (ChunkKey{CX: -2, CZ: 9}) {
		t.Fatalf("keys=%v", keys)
	}
	if !s.Erase(k) || s.Erase(k) {
		t.Fatalf("erase should succeed once")
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want 1", s.Len())
	}
}

func TestLocateNegativeCoords(t *testing.T) {
	s := NewChunkStore(16, 32)
	k, lx, lz := s.Locate(-1, 17)
	if k != (ChunkKey{CX: -1, CZ: 1}) || lx != 15 || lz != 1 {
		t.Fatalf("Locate(-1,17)=%v,%d,%d", k, lx, lz)
	}
}
