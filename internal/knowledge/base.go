// Package knowledge holds the testing hint base the planner draws on:
// free-text notes about the target application and the selector
// conventions its pages follow. The base lives in a YAML file that can be
// edited while serving and hot-reloaded.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// document is the on-disk shape of the knowledge base.
type document struct {
	Hints     map[string]string `yaml:"hints"`
	Selectors map[string]string `yaml:"selectors"`
}

// Base is a thread-safe view over the knowledge file.
type Base struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// defaultDocument seeds a fresh knowledge file so the planner works out of
// the box against a typical browser game.
func defaultDocument() document {
	return document{
		Hints: map[string]string{
			"common_bugs":    "If a game uses WebGL, check for context loss on tab switch. Common game breaking bugs involve rapid input sequences.",
			"target_details": "Input fields usually carry the class '.game-input'; the final score is in '#final-score' and the summation result in '#result-value'.",
			"planning_tips":  "Prioritize tests around input boundary conditions, e.g. very long or very short numbers.",
		},
		Selectors: map[string]string{
			"start_button": ".start-button",
			"result":       ".score, .result, #result",
		},
	}
}

// Load reads the knowledge base at path, creating it with defaults if it
// does not exist yet.
func Load(path string) (*Base, error) {
	b := &Base{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Info("creating default knowledge base at %s", path)
		b.doc = defaultDocument()
		if err := b.save(); err != nil {
			return nil, err
		}
		return b, nil
	}

	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Base) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create knowledge directory: %w", err)
	}
	data, err := yaml.Marshal(b.doc)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}
	return nil
}

// Reload re-reads the backing file.
func (b *Base) Reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	b.mu.Lock()
	b.doc = doc
	b.mu.Unlock()
	return nil
}

// Path returns the location of the backing file.
func (b *Base) Path() string {
	return b.path
}

// Selector returns a named selector convention, or def when the base does
// not override it.
func (b *Base) Selector(name, def string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if s, ok := b.doc.Selectors[name]; ok && s != "" {
		return s
	}
	return def
}

// Retrieve returns the hint chunks relevant to a free-text query, matched
// by keyword.
func (b *Base) Retrieve(query string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	query = strings.ToLower(query)
	var chunks []string

	if containsAny(query, "bug", "error", "issue") {
		if hint := b.doc.Hints["common_bugs"]; hint != "" {
			chunks = append(chunks, "Common Bugs/Issues: "+hint)
		}
	}
	if containsAny(query, "target", "url", "game") {
		if hint := b.doc.Hints["target_details"]; hint != "" {
			chunks = append(chunks, "Target Details: "+hint)
		}
	}
	if containsAny(query, "test case", "generation", "plan") {
		if hint := b.doc.Hints["planning_tips"]; hint != "" {
			chunks = append(chunks, "Planning Tips: "+hint)
		}
	}

	return strings.Join(chunks, "\n")
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
