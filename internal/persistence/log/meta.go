package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"voxelgate.dev/internal/sim/tuning"
)

// RunMeta records what a run directory was produced with, so its tick log
// can be replayed later.
type RunMeta struct {
	WorldID   string        `json:"world_id"`
	RunID     string        `json:"run_id"`
	Seed      int64         `json:"seed"`
	Tuning    tuning.Tuning `json:"tuning"`
	Palette   string        `json:"palette_digest"`
	StartedAt string        `json:"started_at"`
}

const runMetaFile = "run.json"

func WriteRunMeta(runDir string, m RunMeta) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, runMetaFile), append(b, '\n'), 0o644)
}

func ReadRunMeta(runDir string) (RunMeta, error) {
	var m RunMeta
	b, err := os.ReadFile(filepath.Join(runDir, runMetaFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", runMetaFile, err)
	}
	return m, nil
}
