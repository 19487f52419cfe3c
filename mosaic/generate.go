package mosaic

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicme/mosaicme/color"
	"github.com/mosaicme/mosaicme/palette"
)

var (
	// ErrDecode is returned when the uploaded image data cannot be
	// decoded
	ErrDecode = errors.New("failed to decode image")

	// ErrInvalidSize is returned when the requested baseplate size is
	// not one of BaseplateSizes
	ErrInvalidSize = errors.New("invalid baseplate size")
)

// BaseplateSizes lists the supported mosaic grid side lengths
var BaseplateSizes = []int{32, 48, 64, 96, 128}

// ValidSize reports whether size is a supported baseplate size
func ValidSize(size int) bool {
	for _, s := range BaseplateSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Cell is one grid position resolved to a palette color
type Cell struct {
	ColorID   string    `json:"colorId"`
	ColorName string    `json:"colorName"`
	RGB       color.RGB `json:"rgb"`
	Hex       string    `json:"hex"`
}

// ShoppingItem is the aggregate piece count for one palette color
type ShoppingItem struct {
	ColorID   string    `json:"colorId"`
	ColorName string    `json:"colorName"`
	RGB       color.RGB `json:"rgb"`
	Hex       string    `json:"hex"`
	LegoID    string    `json:"legoId,omitempty"`
	Quantity  int       `json:"quantity"`
}

// Metadata describes a generated mosaic
type Metadata struct {
	BaseplateSize int       `json:"baseplateSize"`
	PieceType     string    `json:"pieceType"`
	TotalPieces   int       `json:"totalPieces"`
	UniqueColors  int       `json:"uniqueColors"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Result is a complete generated mosaic. The grid is row-major with
// side length Metadata.BaseplateSize.
type Result struct {
	SessionID    string         `json:"sessionId"`
	Grid         [][]Cell       `json:"grid"`
	ShoppingList []ShoppingItem `json:"shoppingList"`
	Metadata     Metadata       `json:"metadata"`
}

// Generator builds mosaics from raw image bytes. It holds no
// per-request state; one instance serves all requests concurrently.
type Generator struct{}

// NewGenerator creates a new mosaic generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate decodes the image, reduces it to a baseplateSize² grid,
// matches every pixel against the palette, and derives the shopping
// list. The size is validated before any image processing happens, and
// no partial result is ever returned.
func (g *Generator) Generate(imageBytes []byte, baseplateSize int, pal *palette.Palette) (*Result, error) {
	if !ValidSize(baseplateSize) {
		return nil, fmt.Errorf("baseplate size %d not in %v: %w", baseplateSize, BaseplateSizes, ErrInvalidSize)
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	pixels := Reduce(img, baseplateSize)

	grid := make([][]Cell, baseplateSize)
	for y, row := range pixels {
		cells := make([]Cell, baseplateSize)
		for x, px := range row {
			c := pal.ClosestColor(px)
			cells[x] = Cell{
				ColorID:   c.ID,
				ColorName: c.Name,
				RGB:       c.RGB,
				Hex:       c.Hex,
			}
		}
		grid[y] = cells
	}

	list := shoppingList(grid, pal)

	return &Result{
		SessionID:    uuid.NewString(),
		Grid:         grid,
		ShoppingList: list,
		Metadata: Metadata{
			BaseplateSize: baseplateSize,
			PieceType:     pal.Type(),
			TotalPieces:   baseplateSize * baseplateSize,
			UniqueColors:  len(list),
			CreatedAt:     time.Now().UTC(),
		},
	}, nil
}

// shoppingList counts cells per color in row-major order and sorts the
// entries by quantity descending. The sort is stable, so colors with
// equal quantities keep their first-seen order.
func shoppingList(grid [][]Cell, pal *palette.Palette) []ShoppingItem {
	index := make(map[string]int)
	var items []ShoppingItem

	for _, row := range grid {
		for _, cell := range row {
			i, seen := index[cell.ColorID]
			if !seen {
				i = len(items)
				index[cell.ColorID] = i
				items = append(items, ShoppingItem{
					ColorID:   cell.ColorID,
					ColorName: cell.ColorName,
					RGB:       cell.RGB,
					Hex:       cell.Hex,
					LegoID:    legoID(pal, cell.ColorID),
				})
			}
			items[i].Quantity++
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Quantity > items[j].Quantity
	})
	return items
}

func legoID(pal *palette.Palette, colorID string) string {
	for _, c := range pal.Colors() {
		if c.ID == colorID {
			return c.LegoID
		}
	}
	return ""
}
