// Package color provides the color primitives used by the mosaic
// pipeline: RGB values, hex parsing, conversion to the CIE Lab color
// space, and the Delta E (CIE76) perceptual distance metric.
package color

import (
	"encoding/json"
	"fmt"
	"math"
)

// RGB represents an 8-bit-per-channel RGB color
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// MarshalJSON encodes the color as a [r, g, b] array
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

// UnmarshalJSON decodes the color from a [r, g, b] array
func (c *RGB) UnmarshalJSON(data []byte) error {
	var channels [3]uint8
	if err := json.Unmarshal(data, &channels); err != nil {
		return fmt.Errorf("invalid rgb triple: %w", err)
	}
	c.R, c.G, c.B = channels[0], channels[1], channels[2]
	return nil
}

// Lab represents a color in the CIE Lab color space
type Lab struct {
	L float64
	A float64
	B float64
}

// Hex returns the color as a lowercase hex string (e.g. "#1a2b3c")
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses a hex color string with or without a leading '#'
func ParseHex(hex string) (RGB, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return RGB{R: r, G: g, B: b}, nil
}

// RGBToLab converts an sRGB color to CIE Lab under the D65 illuminant.
// The conversion follows the standard pipeline: gamma decode, linear
// RGB to XYZ, white point normalization, then the CIE f(t) nonlinearity.
func RGBToLab(c RGB) Lab {
	r := gammaDecode(float64(c.R) / 255.0)
	g := gammaDecode(float64(c.G) / 255.0)
	b := gammaDecode(float64(c.B) / 255.0)

	// Linear RGB to XYZ (sRGB matrix, D65 white point)
	x := r*0.4124564 + g*0.3575761 + b*0.1804375
	y := r*0.2126729 + g*0.7151522 + b*0.0721750
	z := r*0.0193339 + g*0.1191920 + b*0.9503041

	// Normalize by the D65 reference white
	x /= 0.95047
	y /= 1.00000
	z /= 1.08883

	fx := labF(x)
	fy := labF(y)
	fz := labF(z)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// gammaDecode undoes the sRGB transfer function on a [0,1] channel
func gammaDecode(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

// labF applies the CIE f(t) nonlinearity
func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

// DeltaE returns the CIE76 color difference between two Lab colors,
// which is the Euclidean distance in Lab space
func DeltaE(a, b Lab) float64 {
	dl := b.L - a.L
	da := b.A - a.A
	db := b.B - a.B
	return math.Sqrt(dl*dl + da*da + db*db)
}
