package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/world/logic/rates"
	"voxelgate.dev/internal/sim/world/mesh"
	"voxelgate.dev/internal/sim/world/terrain/gen"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

// World owns every resident chunk and the streaming state around one
// observer. All state must be accessed only from the world loop goroutine;
// the exported block and streaming methods are for that goroutine, tests
// and offline tools.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger

	tick atomic.Uint64

	gen    *gen.Generator
	chunks *store.ChunkStore
	loaded map[store.ChunkKey]struct{}
	queue  loadQueue
	meshes *mesh.Cache

	observer mgl64.Vec3

	// Requests from other goroutines, drained by Run.
	pose          chan mgl64.Vec3
	edits         chan EditRequest
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}

	observers map[string]*observerClient
	// per-session SET_BLOCK windows
	editLimits map[string]*rates.Window

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger
	index       ChunkIndex

	// Filled during a tick, consumed when it is published.
	tickGates []gen.GateSite
	tickEdits []AuditEntry

	metrics atomic.Value // WorldMetrics
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// ChunkIndex receives generation results for the read-model index.
type ChunkIndex interface {
	RecordChunk(tick uint64, rep gen.Report, digest [32]byte)
	RecordGate(tick uint64, site gen.GateSite)
}

type TickLogEntry struct {
	Tick            uint64           `json:"tick"`
	Observer        [3]float64       `json:"observer"`
	Loaded          []store.ChunkKey `json:"loaded,omitempty"`
	Evicted         []store.ChunkKey `json:"evicted,omitempty"`
	Rebuilt         int              `json:"rebuilt"`
	LoadedCount     int              `json:"loaded_count"`
	LoadedSetDigest string           `json:"loaded_set_digest"`
	Gates           []gen.GateSite   `json:"gates,omitempty"`
	Edits           []AuditEntry     `json:"edits,omitempty"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   uint8  `json:"from"`
	To     uint8  `json:"to"`
	Reason string `json:"reason,omitempty"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if cats == nil {
		cats = catalogs.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	genCfg, err := generatorConfig(cfg, cats, logger)
	if err != nil {
		return nil, err
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      logger,
		gen:      gen.New(genCfg),
		chunks:   store.NewChunkStore(cfg.ChunkSize, cfg.Height),
		loaded:   map[store.ChunkKey]struct{}{},
		meshes: mesh.NewCache(cats.Blocks, mesh.Options{
			MaxBlocks: cfg.MeshMaxBlocks,
			Logger:    logger,
		}, cfg.MeshRebuildsPerTick),

		pose:          make(chan mgl64.Vec3, 64),
		edits:         make(chan EditRequest, 256),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerSub:   make(chan ObserverSubscribeRequest, 256),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),

		observers:  map[string]*observerClient{},
		editLimits: map[string]*rates.Window{},
	}
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func generatorConfig(cfg WorldConfig, cats *catalogs.Catalogs, logger *log.Logger) (gen.Config, error) {
	idx := cats.Blocks.Index
	b := func(name string) (uint8, error) {
		v, ok := idx[name]
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", name)
		}
		return v, nil
	}
	var pal gen.Palette
	for _, f := range []struct {
		name string
		dst  *uint8
	}{
		{"air", &pal.Air},
		{"grass", &pal.Grass},
		{"dirt", &pal.Dirt},
		{"stone", &pal.Stone},
		{"water", &pal.Water},
		{"sand", &pal.Sand},
		{cfg.WorldGen.Gate.Block, &pal.GateStone},
	} {
		id, err := b(f.name)
		if err != nil {
			return gen.Config{}, err
		}
		*f.dst = id
	}

	wg := cfg.WorldGen
	out := gen.Config{
		Seed:      cfg.Seed,
		ChunkSize: cfg.ChunkSize,
		Height:    cfg.Height,
		SeaLevel:  cfg.SeaLevel,
		BaseLevel: wg.BaseLevel,
		Noise:     wg.Noise,
		Jitter:    wg.Jitter,
		Palette:   pal,
		Gate: gen.GateSpec{
			Chance:   wg.Gate.Chance,
			Attempts: wg.Gate.Attempts,
			Margin:   wg.Gate.Margin,
			Width:    wg.Gate.Width,
			Height:   wg.Gate.Height,
		},
		Logger: logger,
	}
	for _, o := range wg.Ores {
		id, err := b(o.Block)
		if err != nil {
			return gen.Config{}, fmt.Errorf("ore tier: %w", err)
		}
		out.Ores = append(out.Ores, gen.OreTier{
			Name:     o.Block,
			Block:    id,
			MinCount: o.MinCount,
			MaxCount: o.MaxCount,
			MinY:     o.MinY,
			MaxY:     o.MaxY,
			VeinSize: o.VeinSize,
		})
	}
	for _, f := range wg.Features {
		id, err := b(f.Block)
		if err != nil {
			return gen.Config{}, fmt.Errorf("feature: %w", err)
		}
		out.Features = append(out.Features, gen.Feature{
			Name:     f.Block,
			Block:    id,
			MinCount: f.MinCount,
			MaxCount: f.MaxCount,
			MinY:     f.MinY,
			MaxY:     f.MaxY,
		})
	}
	return out, nil
}

// SetTickLogger must be called before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// SetAuditLogger must be called before Run.
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

// SetChunkIndex must be called before Run.
func (w *World) SetChunkIndex(ix ChunkIndex) { w.index = ix }

func (w *World) Config() WorldConfig {
	if w == nil {
		return WorldConfig{}
	}
	cfg := w.cfg
	cfg.WorldGen.Noise = append(cfg.WorldGen.Noise[:0:0], w.cfg.WorldGen.Noise...)
	cfg.WorldGen.Ores = append(cfg.WorldGen.Ores[:0:0], w.cfg.WorldGen.Ores...)
	cfg.WorldGen.Features = append(cfg.WorldGen.Features[:0:0], w.cfg.WorldGen.Features...)
	return cfg
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) Seed() int64 { return w.cfg.Seed }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Blocks returns the block catalog used for meshing.
func (w *World) Blocks() catalogs.BlockCatalog { return w.catalogs.Blocks }

// Generator exposes the terrain generator; it is pure and safe to share.
func (w *World) Generator() *gen.Generator { return w.gen }
