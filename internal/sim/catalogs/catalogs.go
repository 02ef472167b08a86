package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed blocks.schema.json
var blocksSchemaJSON string

//go:embed default_blocks.yaml
var defaultBlocksYAML []byte

// RequiredBlocks are the names terrain generation writes by name.
var RequiredBlocks = []string{
	"air", "grass", "dirt", "stone", "water", "sand",
	"coal_ore", "iron_ore", "diamond_ore",
	"shadow_stone", "gate_stone", "mana_crystal",
}

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockDef struct {
	ID         uint8      `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Color      [4]float32 `yaml:"color" json:"color"`
	SeeThrough bool       `yaml:"see_through,omitempty" json:"see_through,omitempty"`
}

type BlockCatalog struct {
	Defs   []BlockDef // ordered by id
	ByID   map[uint8]BlockDef
	Index  map[string]uint8
	Digest string
}

type blocksFile struct {
	Blocks []BlockDef `yaml:"blocks"`
}

// FallbackColor is used for ids missing from the catalog.
var FallbackColor = [4]float32{1, 1, 1, 1}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	b, err := LoadBlocks(filepath.Join(configDir, "blocks.yaml"))
	if err != nil {
		return nil, err
	}
	c.Blocks = b
	return &c, nil
}

func Default() *Catalogs {
	return &Catalogs{Blocks: DefaultBlocks()}
}

func LoadBlocks(path string) (BlockCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BlockCatalog{}, err
	}
	return ParseBlocks(raw)
}

// DefaultBlocks is the built-in 16 entry table.
func DefaultBlocks() BlockCatalog {
	c, err := ParseBlocks(defaultBlocksYAML)
	if err != nil {
		panic(fmt.Sprintf("default blocks: %v", err))
	}
	return c
}

func ParseBlocks(raw []byte) (BlockCatalog, error) {
	if err := validateBlocksDoc(raw); err != nil {
		return BlockCatalog{}, fmt.Errorf("blocks.yaml: %w", err)
	}
	var f blocksFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return BlockCatalog{}, fmt.Errorf("blocks.yaml: %w", err)
	}

	out := BlockCatalog{
		ByID:  make(map[uint8]BlockDef, len(f.Blocks)),
		Index: make(map[string]uint8, len(f.Blocks)),
	}
	for _, d := range f.Blocks {
		if _, dup := out.ByID[d.ID]; dup {
			return BlockCatalog{}, fmt.Errorf("blocks.yaml: duplicate id %d", d.ID)
		}
		if _, dup := out.Index[d.Name]; dup {
			return BlockCatalog{}, fmt.Errorf("blocks.yaml: duplicate name %q", d.Name)
		}
		out.ByID[d.ID] = d
		out.Index[d.Name] = d.ID
	}
	if air, ok := out.ByID[0]; !ok || air.Name != "air" {
		return BlockCatalog{}, fmt.Errorf("blocks.yaml: id 0 must be air")
	}
	for _, name := range RequiredBlocks {
		if _, ok := out.Index[name]; !ok {
			return BlockCatalog{}, fmt.Errorf("blocks.yaml: missing %s", name)
		}
	}
	// Face culling treats exactly air and water as see-through.
	for _, d := range f.Blocks {
		want := d.Name == "air" || d.Name == "water"
		if d.SeeThrough != want {
			return BlockCatalog{}, fmt.Errorf("blocks.yaml: %s: see_through must be %v", d.Name, want)
		}
	}

	out.Defs = append(out.Defs, f.Blocks...)
	sort.Slice(out.Defs, func(i, j int) bool { return out.Defs[i].ID < out.Defs[j].ID })
	canon, _ := json.Marshal(out.Defs)
	out.Digest = sha256Hex(canon)
	return out, nil
}

// validateBlocksDoc checks the raw document against the embedded schema.
// YAML is normalised through JSON so the validator sees plain JSON types.
func validateBlocksDoc(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	sch, err := blocksSchema()
	if err != nil {
		return err
	}
	return sch.Validate(v)
}

func blocksSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("blocks.schema.json", blocksSchemaJSON)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c BlockCatalog) Name(id uint8) string {
	if d, ok := c.ByID[id]; ok {
		return d.Name
	}
	return fmt.Sprintf("unknown_%d", id)
}

// Color returns the display RGBA for id; unknown ids get FallbackColor.
func (c BlockCatalog) Color(id uint8) [4]float32 {
	if d, ok := c.ByID[id]; ok {
		return d.Color
	}
	return FallbackColor
}

// SeeThrough reports whether faces of neighbouring solids stay visible
// against id: air and water only. Unknown ids are opaque.
func (c BlockCatalog) SeeThrough(id uint8) bool {
	if id == 0 {
		return true
	}
	return c.ByID[id].SeeThrough
}

func (c BlockCatalog) MustID(name string) uint8 {
	id, ok := c.Index[name]
	if !ok {
		panic("catalogs: unknown block " + name)
	}
	return id
}
