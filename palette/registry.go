package palette

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed palettes/*.json
var defaultPalettes embed.FS

// Info is palette metadata as reported to API and CLI consumers
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ColorCount int    `json:"colorCount"`
}

// Registry holds every loaded palette keyed by piece type. It is built
// once during process startup and read-only afterwards; request
// handlers receive it by reference instead of consulting any global
// state.
type Registry struct {
	palettes map[string]*Palette
	types    []string
}

// NewRegistry builds a registry from the palette definitions embedded
// in the binary
func NewRegistry() (*Registry, error) {
	entries, err := defaultPalettes.ReadDir("palettes")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded palettes: %w", err)
	}

	r := &Registry{palettes: make(map[string]*Palette)}
	for _, entry := range entries {
		data, err := defaultPalettes.ReadFile("palettes/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded palette %s: %w", entry.Name(), err)
		}
		if err := r.add(data); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// NewRegistryFromDir builds a registry from *.json palette definitions
// in the given directory, falling back to the embedded defaults when
// the directory is empty or does not exist
func NewRegistryFromDir(dir string) (*Registry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan palette directory: %w", err)
	}
	if len(matches) == 0 {
		return NewRegistry()
	}

	r := &Registry{palettes: make(map[string]*Palette)}
	for _, path := range matches {
		data, err := os.ReadFile(path) // #nosec G304 - operator-configured palette directory
		if err != nil {
			return nil, fmt.Errorf("failed to read palette file %s: %w", path, err)
		}
		if err := r.add(data); err != nil {
			return nil, fmt.Errorf("palette file %s: %w", path, err)
		}
	}

	return r, nil
}

func (r *Registry) add(data []byte) error {
	p, err := Parse(data)
	if err != nil {
		return err
	}
	key := strings.ToLower(p.Type())
	if _, exists := r.palettes[key]; exists {
		return fmt.Errorf("duplicate palette type %q", key)
	}
	r.palettes[key] = p
	r.types = append(r.types, key)
	sort.Strings(r.types)
	return nil
}

// Get returns the palette for a piece type, or false when none exists
func (r *Registry) Get(pieceType string) (*Palette, bool) {
	p, ok := r.palettes[strings.ToLower(pieceType)]
	return p, ok
}

// Types returns the registered piece types in sorted order
func (r *Registry) Types() []string {
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}

// List returns metadata for every registered palette in sorted type
// order
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.types))
	for _, t := range r.types {
		p := r.palettes[t]
		out = append(out, Info{
			ID:         p.ID(),
			Name:       p.Name(),
			Type:       p.Type(),
			ColorCount: p.Len(),
		})
	}
	return out
}
