package png

import (
	"fmt"
	"image/color"
)

// Pixel is a normalized 8-bit-per-channel pixel. Two pixels are equal only
// if all five fields match, so a grayscale pixel never equals a colour pixel
// with the same channel values. Pixel is comparable and usable as a map key.
type Pixel struct {
	R, G, B, A  byte
	IsGrayscale bool
}

// RGB returns an opaque colour pixel.
func RGB(r, g, b byte) Pixel {
	return Pixel{R: r, G: g, B: b, A: 255}
}

// RGBA returns a colour pixel with the given (non-premultiplied) alpha.
func RGBA(r, g, b, a byte) Pixel {
	return Pixel{R: r, G: g, B: b, A: a}
}

// Gray returns an opaque grayscale pixel.
func Gray(v byte) Pixel {
	return Pixel{R: v, G: v, B: v, A: 255, IsGrayscale: true}
}

// GrayAlpha returns a grayscale pixel with alpha.
func GrayAlpha(v, a byte) Pixel {
	return Pixel{R: v, G: v, B: v, A: a, IsGrayscale: true}
}

// NRGBA converts the pixel to the standard library's non-premultiplied colour.
func (p Pixel) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: p.A}
}

// RGBA implements color.Color.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	return p.NRGBA().RGBA()
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", p.R, p.G, p.B, p.A)
}

// pixelFromColor converts any colour to a Pixel without premultiplication.
func pixelFromColor(c color.Color) Pixel {
	switch c := c.(type) {
	case Pixel:
		return c
	case color.Gray:
		return Gray(c.Y)
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA(n.R, n.G, n.B, n.A)
}
