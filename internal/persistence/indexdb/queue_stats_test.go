package indexdb

import (
	"testing"

	"voxelgate.dev/internal/sim/world"
	"voxelgate.dev/internal/sim/world/terrain/gen"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordChunk(2, gen.Report{Key: store.ChunkKey{CX: 1}}, [32]byte{})
	s.RecordGate(2, gen.GateSite{X: 1, Y: 2, Z: 3})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropAuditTotal != 1 {
		t.Fatalf("DropAuditTotal=%d want=1", st.DropAuditTotal)
	}
	if st.DropChunkTotal != 1 {
		t.Fatalf("DropChunkTotal=%d want=1", st.DropChunkTotal)
	}
	if st.DropGateTotal != 1 {
		t.Fatalf("DropGateTotal=%d want=1", st.DropGateTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(world.TickLogEntry{}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	s.RecordChunk(0, gen.Report{}, [32]byte{})
	if st := s.Stats(); st != (Stats{}) {
		t.Fatalf("stats=%+v", st)
	}
}
