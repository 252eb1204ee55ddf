package png

import (
	"image"
	"image/color"
)

// Image is a fully decoded PNG held in memory.
type Image struct {
	header  Header
	palette Palette
	raster  *raster
}

func (img *Image) Width() int { return img.header.Width }
func (img *Image) Height() int { return img.header.Height }
func (img *Image) Header() Header { return img.header }
func (img *Image) HasAlpha() bool { return img.header.HasAlpha() }

// Opaque reports whether the image has no alpha channel.
func (img *Image) Opaque() bool { return !img.header.HasAlpha() }

// Palette returns a copy of the image's palette, or nil for non-indexed images.
func (img *Image) Palette() Palette {
	if img.palette == nil {
		return nil
	}
	return append(Palette(nil), img.palette...)
}

// Pixel returns the pixel at (x, y). Coordinates outside the image give a
// RangeError and leave the image untouched.
func (img *Image) Pixel(x, y int) (Pixel, error) {
	return img.raster.pixel(x, y, img.palette)
}

// ColorModel implements image.Image.
func (img *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (img *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.header.Width, img.header.Height)
}

// At implements image.Image. Out-of-range coordinates give transparent black.
func (img *Image) At(x, y int) color.Color {
	p, err := img.raster.pixel(x, y, img.palette)
	if err != nil {
		return color.NRGBA{}
	}
	return p.NRGBA()
}
