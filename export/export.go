// Package export renders a generated mosaic into downloadable
// artifacts: the mosaic raster, annotated build instructions, and
// shopping list files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image/png"
	"os"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/mosaicme/mosaicme/color"
	"github.com/mosaicme/mosaicme/mosaic"
)

const (
	// DefaultPixelSize is the rendered size of one stud in MosaicPNG
	DefaultPixelSize = 20

	instructionCellSize  = 30
	instructionPadding   = 20
	legendWidth          = 300
	legendRowHeight      = 35
	legendFontSize       = 12
	instructionFontSize  = 10
	instructionGridLines = "#cccccc"
)

// Renderer renders export artifacts from mosaic results. It holds no
// per-request state; construct one and share it across requests.
type Renderer struct {
	font *truetype.Font
}

// NewRenderer creates a renderer. fontPath points at a TrueType font
// used for instruction labels; when empty or unreadable the renderer
// falls back to the built-in bitmap face.
func NewRenderer(fontPath string) *Renderer {
	r := &Renderer{}
	if fontPath == "" {
		return r
	}
	data, err := os.ReadFile(fontPath) // #nosec G304 - operator-configured font path
	if err != nil {
		return r
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return r
	}
	r.font = parsed
	return r
}

// MosaicPNG renders the grid as a flat PNG raster with pixelSize
// pixels per cell. A pixelSize of 0 uses DefaultPixelSize.
func (r *Renderer) MosaicPNG(grid [][]mosaic.Cell, pixelSize int) ([]byte, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("cannot render an empty grid")
	}
	if pixelSize <= 0 {
		pixelSize = DefaultPixelSize
	}

	gridSize := len(grid)
	imgSize := gridSize * pixelSize

	dc := gg.NewContext(imgSize, imgSize)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	for rowIdx, row := range grid {
		for colIdx, cell := range row {
			dc.SetHexColor(cell.Hex)
			dc.DrawRectangle(float64(colIdx*pixelSize), float64(rowIdx*pixelSize),
				float64(pixelSize), float64(pixelSize))
			dc.Fill()
		}
	}

	return encodePNG(dc)
}

// InstructionsPNG renders numbered build instructions: every cell
// carries the legend number of its color, and the legend column maps
// numbers to swatches and color names.
func (r *Renderer) InstructionsPNG(grid [][]mosaic.Cell, list []mosaic.ShoppingItem) ([]byte, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("cannot render an empty grid")
	}

	// Legend numbers follow shopping list order, 1-based.
	numbers := make(map[string]int, len(list))
	for i, item := range list {
		numbers[item.ColorID] = i + 1
	}

	gridSize := len(grid)
	gridPx := gridSize * instructionCellSize
	width := gridPx + legendWidth + instructionPadding*3
	height := gridPx
	if legendPx := len(list) * legendRowHeight; legendPx > height {
		height = legendPx
	}
	height += instructionPadding * 2

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	labelFace := r.face(instructionFontSize)
	legendFace := r.face(legendFontSize)

	for rowIdx, row := range grid {
		for colIdx, cell := range row {
			x := float64(instructionPadding + colIdx*instructionCellSize)
			y := float64(instructionPadding + rowIdx*instructionCellSize)

			dc.SetHexColor(cell.Hex)
			dc.DrawRectangle(x, y, instructionCellSize, instructionCellSize)
			dc.Fill()
			dc.SetHexColor(instructionGridLines)
			dc.DrawRectangle(x, y, instructionCellSize, instructionCellSize)
			dc.Stroke()

			if labelFace != nil {
				dc.SetFontFace(labelFace)
			}
			dc.SetHexColor(labelColor(cell.RGB))
			dc.DrawStringAnchored(fmt.Sprintf("%d", numbers[cell.ColorID]),
				x+instructionCellSize/2, y+instructionCellSize/2, 0.5, 0.5)
		}
	}

	legendX := float64(instructionPadding*2 + gridPx)
	legendY := float64(instructionPadding)

	if legendFace != nil {
		dc.SetFontFace(legendFace)
	}
	dc.SetHexColor("#000000")
	dc.DrawString("Color Legend", legendX, legendY+legendFontSize)
	legendY += 30

	for i, item := range list {
		y := legendY + float64(i*legendRowHeight)

		dc.SetHexColor("#000000")
		dc.DrawString(fmt.Sprintf("%d.", i+1), legendX, y+20)

		swatchX := legendX + 25
		dc.SetHexColor(item.Hex)
		dc.DrawRectangle(swatchX, y+5, 24, 20)
		dc.Fill()
		dc.SetHexColor(instructionGridLines)
		dc.DrawRectangle(swatchX, y+5, 24, 20)
		dc.Stroke()

		dc.SetHexColor("#000000")
		dc.DrawString(item.ColorName, swatchX+35, y+20)
	}

	return encodePNG(dc)
}

// ShoppingCSV renders the shopping list as a CSV download
func (r *Renderer) ShoppingCSV(list []mosaic.ShoppingItem, pieceType string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Color ID", "Color Name", "Quantity", "Piece Type", "Hex Color"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	pieceName := fmt.Sprintf("%s 1×1 Plate", capitalize(pieceType))
	for _, item := range list {
		record := []string{
			item.ColorID,
			item.ColorName,
			fmt.Sprintf("%d", item.Quantity),
			pieceName,
			item.Hex,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PickABrickCSV renders the shopping list in the tab-separated format
// LEGO's Pick-a-Brick cart upload accepts. Colors without a known
// element id are skipped.
func (r *Renderer) PickABrickCSV(list []mosaic.ShoppingItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'

	if err := w.Write([]string{"elementId", "quantity"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	sorted := make([]mosaic.ShoppingItem, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quantity > sorted[j].Quantity
	})

	for _, item := range sorted {
		if item.LegoID == "" {
			continue
		}
		if err := w.Write([]string{item.LegoID, fmt.Sprintf("%d", item.Quantity)}); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// face returns a TrueType face at the given size, or nil when the
// renderer is using the built-in fallback face
func (r *Renderer) face(size float64) font.Face {
	if r.font == nil {
		return nil
	}
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

// labelColor picks black or white for text over the given cell color
// using perceived brightness
func labelColor(c color.RGB) string {
	brightness := (int(c.R)*299 + int(c.G)*587 + int(c.B)*114) / 1000
	if brightness > 128 {
		return "#000000"
	}
	return "#ffffff"
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
