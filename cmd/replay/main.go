package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	persistlog "voxelgate.dev/internal/persistence/log"
	"voxelgate.dev/internal/sim/catalogs"
	"voxelgate.dev/internal/sim/world"
)

func main() {
	var (
		runDir    = flag.String("run", "", "run directory containing run.json and events/")
		configDir = flag.String("configs", "./configs", "config directory")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	meta, err := persistlog.ReadRunMeta(*runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read run meta:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	if meta.Palette != "" && meta.Palette != cats.Blocks.Digest {
		fmt.Fprintf(os.Stderr, "palette mismatch: run=%s configs=%s\n", meta.Palette, cats.Blocks.Digest)
		os.Exit(1)
	}

	tune := meta.Tuning
	seed := meta.Seed
	tune.Seed = &seed
	w, err := world.New(world.ConfigFromTuning(meta.WorldID, tune), cats, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	entries, err := persistlog.ReadTicks(*runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read ticks:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no tick entries under", *runDir)
		os.Exit(1)
	}

	checked, err := replay(w, entries, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: world=%s run=%s seed=%d checked=%d ticks loaded=%d\n",
		meta.WorldID, meta.RunID, meta.Seed, checked, w.LoadedCount())
}

// replay steps w through entries and compares each tick's loaded set with the
// recorded one.
func replay(w *world.World, entries []world.TickLogEntry, toTick uint64) (uint64, error) {
	var checked uint64
	for _, entry := range entries {
		if toTick != 0 && entry.Tick > toTick {
			break
		}
		if entry.Tick != w.CurrentTick() {
			return checked, fmt.Errorf("tick mismatch: want=%d got=%d", w.CurrentTick(), entry.Tick)
		}

		edits := make([]world.EditRequest, 0, len(entry.Edits))
		for _, e := range entry.Edits {
			edits = append(edits, world.EditRequest{SessionID: e.Actor, Pos: e.Pos, Block: e.To})
		}
		res := w.StepOnce(mgl64.Vec3(entry.Observer), edits)
		if res.Tick != entry.Tick {
			return checked, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", res.Tick, entry.Tick)
		}
		for _, o := range res.Edits {
			if !o.OK {
				return checked, fmt.Errorf("tick %d: recorded edit at %v rejected: %s", entry.Tick, o.Request.Pos, o.Code)
			}
		}
		if got := w.LoadedCount(); got != entry.LoadedCount {
			return checked, fmt.Errorf("loaded count mismatch at tick %d: got=%d want=%d", entry.Tick, got, entry.LoadedCount)
		}
		if res.Digest != entry.LoadedSetDigest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", entry.Tick, res.Digest, entry.LoadedSetDigest)
		}
		checked++
	}
	return checked, nil
}
