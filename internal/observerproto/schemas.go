package observerproto

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeSubscribe: "schemas/subscribe.schema.json",
	TypePose:      "schemas/pose.schema.json",
	TypeSetBlock:  "schemas/set_block.schema.json",
}

// Validator checks inbound client messages against their JSON schemas.
// Compiled schemas are immutable and safe for concurrent use.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	for _, path := range schemaFiles {
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(path, strings.NewReader(string(b))); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	v := &Validator{byType: make(map[string]*jsonschema.Schema, len(schemaFiles))}
	for typ, path := range schemaFiles {
		s, err := c.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

type envelope struct {
	Type string `json:"type"`
}

// Check returns the message type once raw passes its schema.
func (v *Validator) Check(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	s := v.byType[env.Type]
	if s == nil {
		return env.Type, fmt.Errorf("unknown message type %q", env.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return env.Type, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return env.Type, err
	}
	return env.Type, nil
}
