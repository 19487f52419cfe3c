// Package palette holds fixed piece-color palettes and matches
// arbitrary RGB values to their perceptually closest palette entry.
package palette

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaicme/mosaicme/color"
)

var (
	// ErrEmptyPalette is returned when a palette definition has no colors
	ErrEmptyPalette = errors.New("palette has no colors")

	// ErrInvalidColor is returned when a palette color is malformed or
	// has a channel outside the [0,255] range
	ErrInvalidColor = errors.New("invalid palette color")
)

// ColorDef is one color entry in a palette definition as loaded from
// JSON. RGB channels are ints so out-of-range values survive decoding
// long enough to be rejected.
type ColorDef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RGB    [3]int `json:"rgb"`
	Hex    string `json:"hex"`
	LegoID string `json:"legoId,omitempty"`
}

// Definition is a palette definition for one piece type
type Definition struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Colors []ColorDef `json:"colors"`
}

// Color is a single immutable palette entry with its Lab coordinates
// precomputed at construction time
type Color struct {
	ID     string
	Name   string
	RGB    color.RGB
	Hex    string
	LegoID string

	lab color.Lab
}

// Lab returns the precomputed Lab coordinates of the palette color
func (c Color) Lab() color.Lab {
	return c.lab
}

// Palette is an ordered, read-only set of palette colors for one piece
// type. It is never mutated after New returns, so a single instance is
// safe to share across concurrent mosaic generations.
type Palette struct {
	id     string
	name   string
	ptype  string
	colors []Color
}

// New builds a Palette from a definition, validating every color and
// precomputing its Lab coordinates
func New(def Definition) (*Palette, error) {
	if len(def.Colors) == 0 {
		return nil, fmt.Errorf("palette %q: %w", def.ID, ErrEmptyPalette)
	}

	colors := make([]Color, 0, len(def.Colors))
	for _, cd := range def.Colors {
		for _, ch := range cd.RGB {
			if ch < 0 || ch > 255 {
				return nil, fmt.Errorf("palette %q color %q: channel %d out of range: %w",
					def.ID, cd.ID, ch, ErrInvalidColor)
			}
		}

		rgb := color.RGB{R: uint8(cd.RGB[0]), G: uint8(cd.RGB[1]), B: uint8(cd.RGB[2])}

		hex := cd.Hex
		if hex == "" {
			hex = rgb.Hex()
		} else if _, err := color.ParseHex(hex); err != nil {
			return nil, fmt.Errorf("palette %q color %q: %v: %w", def.ID, cd.ID, err, ErrInvalidColor)
		}

		colors = append(colors, Color{
			ID:     cd.ID,
			Name:   cd.Name,
			RGB:    rgb,
			Hex:    hex,
			LegoID: cd.LegoID,
			lab:    color.RGBToLab(rgb),
		})
	}

	ptype := def.Type
	if ptype == "" {
		ptype = def.ID
	}

	return &Palette{
		id:     def.ID,
		name:   def.Name,
		ptype:  ptype,
		colors: colors,
	}, nil
}

// Parse decodes a JSON palette definition and builds a Palette from it
func Parse(data []byte) (*Palette, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse palette definition: %w", err)
	}
	return New(def)
}

// ID returns the palette identifier
func (p *Palette) ID() string { return p.id }

// Name returns the palette display name
func (p *Palette) Name() string { return p.name }

// Type returns the piece type the palette describes
func (p *Palette) Type() string { return p.ptype }

// Len returns the number of colors in the palette
func (p *Palette) Len() int { return len(p.colors) }

// Colors returns a copy of the palette's colors in definition order
func (p *Palette) Colors() []Color {
	out := make([]Color, len(p.colors))
	copy(out, p.colors)
	return out
}

// Definition reconstructs the JSON-shaped definition of the palette,
// for API responses and round-tripping
func (p *Palette) Definition() Definition {
	colors := make([]ColorDef, len(p.colors))
	for i, c := range p.colors {
		colors[i] = ColorDef{
			ID:     c.ID,
			Name:   c.Name,
			RGB:    [3]int{int(c.RGB.R), int(c.RGB.G), int(c.RGB.B)},
			Hex:    c.Hex,
			LegoID: c.LegoID,
		}
	}
	return Definition{ID: p.id, Name: p.name, Type: p.ptype, Colors: colors}
}

// ClosestColor returns the palette entry with the smallest CIE76
// distance to the given RGB value. Only the query color's Lab is
// computed here; palette Labs were precomputed by New. On an exact
// distance tie the earlier-listed entry wins: the scan only replaces
// the current best on a strictly smaller distance.
func (p *Palette) ClosestColor(rgb color.RGB) Color {
	target := color.RGBToLab(rgb)

	best := p.colors[0]
	minDist := color.DeltaE(target, best.lab)

	for _, c := range p.colors[1:] {
		if d := color.DeltaE(target, c.lab); d < minDist {
			minDist = d
			best = c
		}
	}

	return best
}
