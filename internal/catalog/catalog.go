// Package catalog holds the recognized (type, action) pairs for the activity
// log. Pairs outside the catalog are still accepted and persisted; they are
// flagged for ops review rather than rejected.
package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed catalog.json schema.json
var files embed.FS

type catalogDocument struct {
	Version int                 `json:"version"`
	Actions map[string][]string `json:"actions"`
}

// Catalog answers whether a (type, action) pair is part of the recognized set.
type Catalog struct {
	version int
	actions map[string]map[string]struct{}
}

// Load parses the embedded catalog after validating it against the embedded
// JSON schema. A catalog that fails validation is a build defect, so Load
// returns an error instead of degrading.
func Load() (*Catalog, error) {
	schemaBytes, err := files.ReadFile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schema: %w", err)
	}

	catalogBytes, err := files.ReadFile("catalog.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("failed to load catalog schema: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog schema: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(catalogBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("catalog does not match schema: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(catalogBytes, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	actions := make(map[string]map[string]struct{}, len(doc.Actions))
	for eventType, names := range doc.Actions {
		set := make(map[string]struct{}, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		actions[eventType] = set
	}

	return &Catalog{version: doc.Version, actions: actions}, nil
}

// Version returns the catalog document version.
func (c *Catalog) Version() int {
	return c.version
}

// Recognized reports whether the (type, action) pair appears in the catalog.
func (c *Catalog) Recognized(eventType, action string) bool {
	set, ok := c.actions[eventType]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}
