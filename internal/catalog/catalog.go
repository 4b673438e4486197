package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/sandbox"
)

var (
	ErrNotFound = errors.New("catalog: snippet not found")
	ErrNotText  = errors.New("catalog: snippet is not a text file")
)

// Category selects which evaluator a snippet is routed to.
type Category string

const (
	Script    Category = "script"
	Component Category = "component"
)

// Pattern assigns a category to files matching a doublestar glob relative
// to the catalog root.
type Pattern struct {
	Glob     string   `yaml:"glob" toml:"glob"`
	Category Category `yaml:"category" toml:"category"`
}

// DefaultPatterns classify snippets by the directory of their dialect.
var DefaultPatterns = []Pattern{
	{Glob: "js/**/*.js", Category: Script},
	{Glob: "ts/**/*.ts", Category: Script},
	{Glob: "jsx/**/*.jsx", Category: Component},
	{Glob: "tsx/**/*.tsx", Category: Component},
}

// Snippet is one discovered source file.
type Snippet struct {
	ID          string           `json:"id"`
	Category    Category         `json:"category"`
	Language    sandbox.Language `json:"language"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Path        string           `json:"-"`
}

// Config locates the snippet tree.
type Config struct {
	Root     string
	Manifest string    // Manifest file name under Root; missing is not an error
	Patterns []Pattern // Defaults to DefaultPatterns
}

// Catalog is an immutable index of the snippets found under a root.
type Catalog struct {
	root     string
	snippets []Snippet
	byID     map[string]int
	logger   *zap.Logger
}

// Open walks cfg.Root and indexes every file a pattern classifies.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: open root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: %s is not a directory", root)
	}

	manifest, err := loadManifest(root, cfg.Manifest)
	if err != nil {
		return nil, err
	}

	patterns := cfg.Patterns
	if len(manifest.Patterns) > 0 {
		patterns = manifest.Patterns
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range append(patterns, manifestIgnores(manifest)...) {
		if !doublestar.ValidatePattern(p.Glob) {
			return nil, fmt.Errorf("catalog: invalid pattern %q", p.Glob)
		}
	}

	var (
		mu    sync.Mutex
		found []Snippet
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			logger.Debug("skipping unreadable entry", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		id := filepath.ToSlash(rel)
		if manifest.ignored(id) {
			return nil
		}

		category, ok := classify(patterns, id)
		if !ok {
			return nil
		}
		lang, ok := sandbox.LanguageOf(id)
		if !ok {
			return nil
		}

		s := Snippet{
			ID:       id,
			Category: category,
			Language: lang,
			Title:    defaultTitle(id),
			Path:     p,
		}
		if entry, ok := manifest.Snippets[id]; ok {
			if entry.Title != "" {
				s.Title = entry.Title
			}
			s.Description = entry.Description
		}

		mu.Lock()
		found = append(found, s)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: walk %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })

	c := &Catalog{
		root:     root,
		snippets: found,
		byID:     make(map[string]int, len(found)),
		logger:   logger,
	}
	for i, s := range found {
		c.byID[s.ID] = i
	}

	logger.Info("Catalog indexed",
		zap.String("root", root),
		zap.Int("snippets", len(found)),
	)
	return c, nil
}

func classify(patterns []Pattern, id string) (Category, bool) {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p.Glob, id); ok {
			return p.Category, true
		}
	}
	return "", false
}

func defaultTitle(id string) string {
	base := path.Base(id)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Root returns the absolute catalog root.
func (c *Catalog) Root() string { return c.root }

// Get returns the snippet with the given id.
func (c *Catalog) Get(id string) (Snippet, error) {
	i, ok := c.byID[id]
	if !ok {
		return Snippet{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.snippets[i], nil
}

// List returns every snippet sorted by id.
func (c *Catalog) List() []Snippet {
	out := make([]Snippet, len(c.snippets))
	copy(out, c.snippets)
	return out
}

// ByCategory returns the snippets of one category sorted by id.
func (c *Catalog) ByCategory(category Category) []Snippet {
	var out []Snippet
	for _, s := range c.snippets {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Counts returns the number of snippets per category.
func (c *Catalog) Counts() map[Category]int {
	counts := map[Category]int{Script: 0, Component: 0}
	for _, s := range c.snippets {
		counts[s.Category]++
	}
	return counts
}
