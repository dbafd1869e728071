// Package taxonomy holds the immutable intent catalogue: ActionCode
// identifiers and their IntentDefinitions. LoadDir builds it once and
// nothing mutates it afterwards, so reads need no lock.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ActionCode identifies one of the ~200 supported intents, e.g.
// "ADD_TO_CART" or "SEARCH_PRODUCT".
type ActionCode string

// PriorityBucket groups intents by how urgently they should be handled
// ahead of the embedding/LLM path.
type PriorityBucket string

const (
	PriorityCritical PriorityBucket = "CRITICAL"
	PriorityHigh     PriorityBucket = "HIGH"
	PriorityMedium   PriorityBucket = "MEDIUM"
	PriorityLow      PriorityBucket = "LOW"
	PriorityFallback PriorityBucket = "FALLBACK"
)

// IntentDefinition describes one action code's metadata: category,
// example phrases used to seed reference embeddings, entity
// requirements, and its own confidence threshold and priority bucket.
type IntentDefinition struct {
	ActionCode          ActionCode     `json:"action_code"`
	Category            string         `json:"category"`
	Description         string         `json:"description"`
	ExamplePhrases      []string       `json:"example_phrases"`
	RequiredEntityKinds []string       `json:"required_entity_kinds,omitempty"`
	OptionalEntityKinds []string       `json:"optional_entity_kinds,omitempty"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	Priority            PriorityBucket `json:"priority"`
}

// Validate enforces the minimal data-model invariants: a non-empty
// action code and at least 5 example phrases.
func (d IntentDefinition) Validate() error {
	if d.ActionCode == "" {
		return fmt.Errorf("taxonomy: action_code must not be empty")
	}
	if len(d.ExamplePhrases) < 5 {
		return fmt.Errorf("taxonomy: %s must have at least 5 example phrases, got %d", d.ActionCode, len(d.ExamplePhrases))
	}
	return nil
}

// Catalogue is an immutable snapshot of the loaded taxonomy, safe for
// concurrent lock-free reads once constructed.
type Catalogue struct {
	definitions map[ActionCode]IntentDefinition
	order       []ActionCode
}

// Lookup returns the definition for code, if known.
func (c *Catalogue) Lookup(code ActionCode) (IntentDefinition, bool) {
	d, ok := c.definitions[code]
	return d, ok
}

// All returns definitions in stable (load) order, never a map iteration,
// so callers that need determinism (e.g. reference embedding training)
// don't depend on Go's randomized map order.
func (c *Catalogue) All() []IntentDefinition {
	out := make([]IntentDefinition, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.definitions[code])
	}
	return out
}

func (c *Catalogue) Len() int { return len(c.order) }

// LoadDir reads every *.json file in dir as a single IntentDefinition or
// a JSON array of IntentDefinitions, validating and de-duplicating
// action codes. Malformed files are reported via error rather than
// skipped silently — taxonomy content is load-bearing for every other
// component, unlike the optional keyword dictionaries.
func LoadDir(dir string) (*Catalogue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read dir %s: %w", dir, err)
	}

	cat := &Catalogue{definitions: make(map[ActionCode]IntentDefinition)}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
		}

		var defs []IntentDefinition
		if err := json.Unmarshal(raw, &defs); err != nil {
			var single IntentDefinition
			if err2 := json.Unmarshal(raw, &single); err2 != nil {
				return nil, fmt.Errorf("taxonomy: parse %s: %w", path, err)
			}
			defs = []IntentDefinition{single}
		}

		for _, d := range defs {
			if err := d.Validate(); err != nil {
				return nil, fmt.Errorf("taxonomy: %s: %w", path, err)
			}
			if _, dup := cat.definitions[d.ActionCode]; dup {
				return nil, fmt.Errorf("taxonomy: duplicate action_code %s in %s", d.ActionCode, path)
			}
			cat.definitions[d.ActionCode] = d
			cat.order = append(cat.order, d.ActionCode)
		}
	}
	return cat, nil
}
