// Package mosaic turns source images into grid mosaics rendered in a
// fixed palette, along with the shopping list derived from the grid.
package mosaic

import (
	"image"
	stdcolor "image/color"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/mosaicme/mosaicme/color"
)

// Reduce converts an image into a size×size row-major grid of RGB
// pixels: flatten to opaque RGB, center-crop to a square, then
// resample with Lanczos3
func Reduce(img image.Image, size int) [][]color.RGB {
	square := flattenAndCrop(img)
	scaled := resize.Resize(uint(size), uint(size), square, resize.Lanczos3)

	bounds := scaled.Bounds()
	grid := make([][]color.RGB, size)
	for y := 0; y < size; y++ {
		row := make([]color.RGB, size)
		for x := 0; x < size; x++ {
			r, g, b, _ := scaled.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			row[x] = color.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
		}
		grid[y] = row
	}
	return grid
}

// flattenAndCrop copies the centered square region of the image into
// an opaque RGBA buffer. Alpha is discarded, not blended. The crop
// region uses integer division: side=min(w,h), left=(w-side)/2,
// top=(h-side)/2.
func flattenAndCrop(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	side := w
	if h < w {
		side = h
	}
	left := bounds.Min.X + (w-side)/2
	top := bounds.Min.Y + (h-side)/2

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			// NRGBA conversion recovers the straight color channels
			// regardless of the source pixel format.
			c := stdcolor.NRGBAModel.Convert(img.At(left+x, top+y)).(stdcolor.NRGBA)
			out.SetRGBA(x, y, stdcolor.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return out
}
