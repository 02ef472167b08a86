package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/alitto/pond/v2"

	"voxelgate.dev/internal/persistence/indexdb"
	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/tuning"
	"voxelgate.dev/internal/sim/world"
	"voxelgate.dev/internal/sim/world/terrain/gen"
	"voxelgate.dev/internal/sim/world/terrain/store"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "world seed (overrides tuning.yaml)")
		radius     = flag.Int("radius", 16, "survey (2r+1)^2 chunks around the origin")
		workers    = flag.Int("workers", runtime.NumCPU(), "generator workers")
		dbPath     = flag.String("db", "", "optional sqlite path to record chunk reports and gates")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[survey] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			v := *seed
			tune.Seed = &v
		}
	})
	if tune.Seed == nil {
		logger.Fatalf("survey needs a seed (-seed or tuning.yaml)")
	}

	// The world is only used to resolve the palette into a generator.
	w, err := world.New(world.ConfigFromTuning("survey", tune), cats, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	cfg := w.Config()

	results := survey(w.Generator(), cfg.ChunkSize, cfg.Height, *radius, *workers)
	sum := summarize(results)

	if *dbPath != "" {
		idx, err := indexdb.OpenSQLite(*dbPath)
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		if err := idx.UpsertCatalogs(cats, tune, *tune.Seed); err != nil {
			logger.Printf("upsert catalogs: %v", err)
		}
		for _, r := range results {
			idx.RecordChunk(0, r.Report, r.Digest)
			for _, g := range r.Report.Gates {
				idx.RecordGate(0, g)
			}
		}
		if err := idx.Close(); err != nil {
			logger.Printf("close db: %v", err)
		}
		st := idx.Stats()
		if st.DropChunkTotal > 0 || st.DropGateTotal > 0 {
			logger.Printf("db dropped chunks=%d gates=%d", st.DropChunkTotal, st.DropGateTotal)
		}
	}

	logger.Printf("seed=%d chunks=%d surface=[%d,%d] gates=%d", *tune.Seed, sum.Chunks, sum.MinSurface, sum.MaxSurface, sum.Gates)
	for _, name := range sortedNames(sum.Ores) {
		logger.Printf("ore %-14s %d", name, sum.Ores[name])
	}
	for _, name := range sortedNames(sum.Features) {
		logger.Printf("feature %-10s %d", name, sum.Features[name])
	}
}

type chunkResult struct {
	Report gen.Report
	Digest [32]byte
}

// survey generates every chunk within radius of the origin on a worker pool
// and returns the reports ordered by chunk key.
func survey(g *gen.Generator, size, height, radius, workers int) []chunkResult {
	if workers <= 0 {
		workers = 1
	}
	pool := pond.NewPool(workers)

	var (
		mu  sync.Mutex
		out = make([]chunkResult, 0, (2*radius+1)*(2*radius+1))
	)
	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			k := store.ChunkKey{CX: cx, CZ: cz}
			pool.Submit(func() {
				ch := store.NewChunk(k, size, height)
				rep, _ := g.Generate(ch)
				d := ch.Digest()
				mu.Lock()
				out = append(out, chunkResult{Report: rep, Digest: d})
				mu.Unlock()
			})
		}
	}
	pool.StopAndWait()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Report.Key, out[j].Report.Key
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		return a.CZ < b.CZ
	})
	return out
}

type summary struct {
	Chunks     int
	MinSurface int
	MaxSurface int
	Gates      int
	Ores       map[string]int
	Features   map[string]int
}

func summarize(results []chunkResult) summary {
	s := summary{Ores: map[string]int{}, Features: map[string]int{}}
	for i, r := range results {
		rep := r.Report
		if i == 0 || rep.MinSurface < s.MinSurface {
			s.MinSurface = rep.MinSurface
		}
		if i == 0 || rep.MaxSurface > s.MaxSurface {
			s.MaxSurface = rep.MaxSurface
		}
		for k, v := range rep.Ores {
			s.Ores[k] += v
		}
		for k, v := range rep.Features {
			s.Features[k] += v
		}
		s.Gates += len(rep.Gates)
		s.Chunks++
	}
	return s
}

func sortedNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
