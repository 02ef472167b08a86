package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/tuning"
	"voxelgate.dev/internal/sim/world"
	"voxelgate.dev/internal/sim/world/terrain/gen"
)

// SQLiteIndex is a secondary read model of the engine: tick summaries,
// block edits, generated chunks and gate sites. Writes are queued and
// applied by one goroutine; a full queue drops rows instead of stalling
// the world loop.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropAudit atomic.Uint64
	dropChunk atomic.Uint64
	dropGate  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqChunk
	reqGate
)

type req struct {
	kind reqKind

	tick  world.TickLogEntry
	audit world.AuditEntry
	chunk chunkRow
	gate  gateRow
}

type chunkRow struct {
	Tick       uint64
	CX, CZ     int
	Digest     string
	MinSurface int
	MaxSurface int
	Ores       map[string]int
	Features   map[string]int
	Gates      int
}

type gateRow struct {
	Tick    uint64
	CX, CZ  int
	X, Y, Z int
}

type Stats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
	DropChunkTotal uint64 `json:"drop_chunk_total"`
	DropGateTotal  uint64 `json:"drop_gate_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Large buffer: streaming a fresh region generates chunks in bursts.
		ch: make(chan req, 262144),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			observer_x REAL NOT NULL,
			observer_y REAL NOT NULL,
			observer_z REAL NOT NULL,
			loaded_count INTEGER NOT NULL,
			loaded INTEGER NOT NULL,
			evicted INTEGER NOT NULL,
			rebuilt INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_block INTEGER NOT NULL,
			to_block INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			first_tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			min_surface INTEGER NOT NULL,
			max_surface INTEGER NOT NULL,
			ores_json TEXT NOT NULL,
			features_json TEXT NOT NULL,
			gates INTEGER NOT NULL,
			PRIMARY KEY (cx, cz)
		);`,
		`CREATE TABLE IF NOT EXISTS gates (
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_gates_chunk ON gates(cx, cz);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		DropChunkTotal: s.dropChunk.Load(),
		DropGateTotal:  s.dropGate.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

// RecordChunk stores the generation report of a chunk. Only the first
// generation of a coordinate is kept; later regenerations after eviction
// produce the same grid.
func (s *SQLiteIndex) RecordChunk(tick uint64, rep gen.Report, digest [32]byte) {
	if s == nil {
		return
	}
	r := chunkRow{
		Tick:       tick,
		CX:         rep.Key.CX,
		CZ:         rep.Key.CZ,
		Digest:     hex.EncodeToString(digest[:]),
		MinSurface: rep.MinSurface,
		MaxSurface: rep.MaxSurface,
		Ores:       rep.Ores,
		Features:   rep.Features,
		Gates:      len(rep.Gates),
	}
	s.enqueue(req{kind: reqChunk, chunk: r}, &s.dropChunk)
}

func (s *SQLiteIndex) RecordGate(tick uint64, site gen.GateSite) {
	if s == nil {
		return
	}
	r := gateRow{
		Tick: tick,
		CX:   site.Chunk.CX,
		CZ:   site.Chunk.CZ,
		X:    site.X,
		Y:    site.Y,
		Z:    site.Z,
	}
	s.enqueue(req{kind: reqGate, gate: r}, &s.dropGate)
}

// UpsertCatalogs stores the block catalog and the effective tuning so a
// database can be matched to the configuration that produced it.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning, seed int64) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if cats != nil {
		if b, _ := json.Marshal(cats.Blocks.Defs); len(b) > 0 {
			rows = append(rows, kv{name: "blocks", digest: cats.Blocks.Digest, json: b})
		}
	}
	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range map[string]string{
		"schema_version": "1",
		"seed":           fmt.Sprintf("%d", seed),
	} {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, k, v); err != nil {
			return err
		}
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,observer_x,observer_y,observer_z,loaded_count,loaded,evicted,rebuilt,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,z,from_block,to_block,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertChunk, _ := s.db.Prepare(`INSERT OR IGNORE INTO chunks(cx,cz,first_tick,digest,min_surface,max_surface,ores_json,features_json,gates) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertGate, _ := s.db.Prepare(`INSERT OR IGNORE INTO gates(cx,cz,x,y,z,tick) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertAudit, insertChunk, insertGate} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			exec(insertTick,
				int64(t.Tick),
				t.Observer[0], t.Observer[1], t.Observer[2],
				t.LoadedCount,
				len(t.Loaded),
				len(t.Evicted),
				t.Rebuilt,
				t.LoadedSetDigest,
				string(b),
			)

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(insertAudit,
				int64(a.Tick),
				seq,
				a.Actor,
				a.Action,
				a.Pos[0], a.Pos[1], a.Pos[2],
				int64(a.From),
				int64(a.To),
				a.Reason,
				string(raw),
			)

		case reqChunk:
			c := r.chunk
			ores, _ := json.Marshal(c.Ores)
			feats, _ := json.Marshal(c.Features)
			exec(insertChunk,
				c.CX, c.CZ,
				int64(c.Tick),
				c.Digest,
				c.MinSurface, c.MaxSurface,
				string(ores), string(feats),
				c.Gates,
			)

		case reqGate:
			g := r.gate
			exec(insertGate, g.CX, g.CZ, g.X, g.Y, g.Z, int64(g.Tick))
		}

		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
