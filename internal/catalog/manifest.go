package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Manifest is the optional snippets.yaml file at the catalog root.
//
//	patterns:
//	  - glob: "examples/**/*.tsx"
//	    category: component
//	ignore:
//	  - "**/_*"
//	snippets:
//	  js/arrays.js:
//	    title: Array helpers
//	    description: map, filter and reduce
//
// A name ending in .toml is read as TOML with the same keys.
type Manifest struct {
	Patterns []Pattern        `yaml:"patterns" toml:"patterns"`
	Ignore   []string         `yaml:"ignore" toml:"ignore"`
	Snippets map[string]Entry `yaml:"snippets" toml:"snippets"`
}

// Entry carries display metadata for one snippet.
type Entry struct {
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
}

func loadManifest(root, name string) (Manifest, error) {
	var m Manifest
	if name == "" {
		return m, nil
	}
	data, err := os.ReadFile(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("catalog: read manifest: %w", err)
	}
	unmarshal := func(data []byte, v any) error { return yaml.Unmarshal(data, v) }
	if filepath.Ext(name) == ".toml" {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("catalog: parse manifest %s: %w", name, err)
	}
	for _, p := range m.Patterns {
		if p.Category != Script && p.Category != Component {
			return m, fmt.Errorf("catalog: manifest pattern %q has unknown category %q", p.Glob, p.Category)
		}
	}
	return m, nil
}

func (m Manifest) ignored(id string) bool {
	for _, glob := range m.Ignore {
		if ok, _ := doublestar.Match(glob, id); ok {
			return true
		}
	}
	return false
}

func manifestIgnores(m Manifest) []Pattern {
	out := make([]Pattern, len(m.Ignore))
	for i, glob := range m.Ignore {
		out[i] = Pattern{Glob: glob}
	}
	return out
}
