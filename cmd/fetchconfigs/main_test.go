package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAcceptsRepoConfigs(t *testing.T) {
	if err := check(filepath.Join("..", "..", "configs")); err != nil {
		t.Fatalf("repo configs: %v", err)
	}
}

func TestCheckRejectsPaletteMissingOre(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "configs", "blocks.yaml"))
	if err != nil {
		t.Fatalf("read blocks: %v", err)
	}
	var kept []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.Contains(line, "coal_ore") {
			continue
		}
		kept = append(kept, line)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.yaml"), []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err = check(dir)
	if err == nil || !strings.Contains(err.Error(), "coal_ore") {
		t.Fatalf("expected missing coal_ore error, got %v", err)
	}
}
