package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelgate.dev/internal/sim/world"
)

// ReadJSONLZstd calls fn for every line of one compressed JSONL file.
func ReadJSONLZstd(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// LogFiles lists rotated files for prefix in dir, oldest first.
func LogFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	// Segment ticks are zero-padded, so lexical order is tick order.
	sort.Strings(out)
	return out, nil
}

// ReadTicks loads every tick entry of a run in tick order.
func ReadTicks(runDir string) ([]world.TickLogEntry, error) {
	return readAll[world.TickLogEntry](filepath.Join(runDir, eventsDir), eventsDir)
}

// ReadAudits loads every audit entry of a run in tick order.
func ReadAudits(runDir string) ([]world.AuditEntry, error) {
	return readAll[world.AuditEntry](filepath.Join(runDir, auditDir), auditDir)
}

func readAll[T any](dir, prefix string) ([]T, error) {
	files, err := LogFiles(dir, prefix)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, path := range files {
		err := ReadJSONLZstd(path, func(line []byte) error {
			var e T
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
