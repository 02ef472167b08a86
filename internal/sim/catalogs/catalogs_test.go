package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultBlocks(t *testing.T) {
	c := DefaultBlocks()
	if len(c.Defs) != 16 {
		t.Fatalf("defs=%d want 16", len(c.Defs))
	}
	for i, d := range c.Defs {
		if int(d.ID) != i {
			t.Fatalf("defs not ordered by id at %d: %d", i, d.ID)
		}
	}
	if c.Index["water"] != 6 || c.Index["gate_stone"] != 14 {
		t.Fatalf("unexpected ids: water=%d gate_stone=%d", c.Index["water"], c.Index["gate_stone"])
	}
	if got := c.Color(1); got != [4]float32{0.2, 0.8, 0.2, 1} {
		t.Fatalf("grass color=%v", got)
	}
	if got := c.Color(200); got != FallbackColor {
		t.Fatalf("unknown color=%v want fallback", got)
	}
	if !c.SeeThrough(0) || !c.SeeThrough(6) || c.SeeThrough(3) || c.SeeThrough(200) {
		t.Fatalf("see-through flags wrong")
	}
	if c.Digest == "" {
		t.Fatalf("missing digest")
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.yaml"), defaultBlocksYAML, 0o644); err != nil {
		t.Fatal(err)
	}
	cats, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cats.Blocks.Digest != DefaultBlocks().Digest {
		t.Fatalf("digest mismatch for identical content")
	}
}

func TestParseBlocksRejects(t *testing.T) {
	cases := map[string]string{
		"water not see-through": strings.Replace(string(defaultBlocksYAML),
			"name: water, color: [0.2, 0.4, 0.8, 0.7], see_through: true}",
			"name: water, color: [0.2, 0.4, 0.8, 0.7]}", 1),
		"leaves see-through": strings.Replace(string(defaultBlocksYAML),
			"name: leaves, color: [0.1, 0.6, 0.1, 1]}",
			"name: leaves, color: [0.1, 0.6, 0.1, 1], see_through: true}", 1),
		"schema color range": `blocks:
  - {id: 0, name: air, color: [0, 0, 0, 2]}`,
		"schema unknown field": `blocks:
  - {id: 0, name: air, color: [0, 0, 0, 0], glow: true}`,
		"air not zero": `blocks:
  - {id: 0, name: stone, color: [0, 0, 0, 1]}`,
		"duplicate id": `blocks:
  - {id: 0, name: air, color: [0, 0, 0, 0]}
  - {id: 0, name: dirt, color: [0, 0, 0, 1]}`,
		"missing required": `blocks:
  - {id: 0, name: air, color: [0, 0, 0, 0]}
  - {id: 1, name: grass, color: [0, 1, 0, 1]}`,
	}
	for name, doc := range cases {
		if doc == string(defaultBlocksYAML) {
			t.Fatalf("%s: edit did not apply", name)
		}
		_, err := ParseBlocks([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.HasPrefix(err.Error(), "blocks.yaml: ") {
			t.Fatalf("%s: error not prefixed: %v", name, err)
		}
	}
}
