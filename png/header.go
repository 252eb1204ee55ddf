package png

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// ColorType is the IHDR colour type, a combination of three flag bits.
type ColorType byte

const (
	ColorPaletteUsed ColorType = 1
	ColorUsed        ColorType = 2
	ColorAlphaUsed   ColorType = 4
)

// The five legal colour models.
const (
	Grayscale      ColorType = 0
	Truecolor                = ColorUsed
	Indexed                  = ColorPaletteUsed | ColorUsed
	GrayscaleAlpha           = ColorAlphaUsed
	TruecolorAlpha           = ColorUsed | ColorAlphaUsed
)

func (c ColorType) String() string {
	switch c {
	case Grayscale:
		return "Grayscale"
	case Truecolor:
		return "Truecolor"
	case Indexed:
		return "Indexed"
	case GrayscaleAlpha:
		return "GrayscaleAlpha"
	case TruecolorAlpha:
		return "TruecolorAlpha"
	}
	var flags []string
	if c&ColorPaletteUsed != 0 {
		flags = append(flags, "palette")
	}
	if c&ColorUsed != 0 {
		flags = append(flags, "color")
	}
	if c&ColorAlphaUsed != 0 {
		flags = append(flags, "alpha")
	}
	return fmt.Sprintf("ColorType(%d:%s)", byte(c), strings.Join(flags, "|"))
}

// HasAlpha reports whether the colour model carries an alpha sample.
func (c ColorType) HasAlpha() bool { return c&ColorAlphaUsed != 0 }

// samplesPerPixel is 1 for grayscale and palette, 2 for grayscale+alpha,
// 3 for truecolor and 4 for truecolor+alpha.
func (c ColorType) samplesPerPixel() int {
	switch c {
	case Grayscale, Indexed:
		return 1
	case GrayscaleAlpha:
		return 2
	case Truecolor:
		return 3
	case TruecolorAlpha:
		return 4
	}
	return 0
}

// permittedBitDepths is the colour type / bit depth legality table.
var permittedBitDepths = map[ColorType][]byte{
	Grayscale:      {1, 2, 4, 8, 16},
	Truecolor:      {8, 16},
	Indexed:        {1, 2, 4, 8},
	GrayscaleAlpha: {8, 16},
	TruecolorAlpha: {8, 16},
}

// CompressionMethod is the IHDR compression method; only deflate (0) exists.
type CompressionMethod byte

const CompressionDeflate CompressionMethod = 0

// FilterMethod is the IHDR filter method; only adaptive filtering (0) exists.
type FilterMethod byte

const FilterAdaptive FilterMethod = 0

// InterlaceMethod is the IHDR interlace method.
type InterlaceMethod byte

const (
	InterlaceNone  InterlaceMethod = 0
	InterlaceAdam7 InterlaceMethod = 1
)

func (m InterlaceMethod) String() string {
	switch m {
	case InterlaceNone:
		return "None"
	case InterlaceAdam7:
		return "Adam7"
	}
	return fmt.Sprintf("InterlaceMethod(%d)", byte(m))
}

const headerLength = 13

// Header is the validated content of the IHDR chunk. It is never modified
// after NewHeader returns it.
type Header struct {
	Width             int
	Height            int
	BitDepth          byte
	ColorType         ColorType
	CompressionMethod CompressionMethod
	FilterMethod      FilterMethod
	InterlaceMethod   InterlaceMethod
}

// NewHeader validates the fields and returns the header.
func NewHeader(width, height int, bitDepth byte, colorType ColorType, compression CompressionMethod, filter FilterMethod, interlace InterlaceMethod) (Header, error) {
	if width <= 0 || width > 0x7fffffff {
		return Header{}, formatError("invalid width %d", width)
	}
	if height <= 0 || height > 0x7fffffff {
		return Header{}, formatError("invalid height %d", height)
	}
	permitted, ok := permittedBitDepths[colorType]
	if !ok {
		return Header{}, formatError("invalid color type %d", byte(colorType))
	}
	legal := false
	for _, d := range permitted {
		if d == bitDepth {
			legal = true
			break
		}
	}
	if !legal {
		return Header{}, formatError("bit depth %d is not permitted for color type %s", bitDepth, colorType)
	}
	if compression != CompressionDeflate {
		return Header{}, formatError("unknown compression method %d", byte(compression))
	}
	if filter != FilterAdaptive {
		return Header{}, formatError("unknown filter method %d", byte(filter))
	}
	if interlace != InterlaceNone && interlace != InterlaceAdam7 {
		return Header{}, formatError("unknown interlace method %d", byte(interlace))
	}
	return Header{
		Width:             width,
		Height:            height,
		BitDepth:          bitDepth,
		ColorType:         colorType,
		CompressionMethod: compression,
		FilterMethod:      filter,
		InterlaceMethod:   interlace,
	}, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) != headerLength {
		return Header{}, formatError("IHDR length %d, expected %d", len(data), headerLength)
	}
	width := int32(binary.BigEndian.Uint32(data[0:4]))
	height := int32(binary.BigEndian.Uint32(data[4:8]))
	return NewHeader(int(width), int(height), data[8], ColorType(data[9]),
		CompressionMethod(data[10]), FilterMethod(data[11]), InterlaceMethod(data[12]))
}

func (h Header) marshal() []byte {
	b := make([]byte, headerLength)
	binary.BigEndian.PutUint32(b[0:4], uint32(h.Width))
	binary.BigEndian.PutUint32(b[4:8], uint32(h.Height))
	b[8] = h.BitDepth
	b[9] = byte(h.ColorType)
	b[10] = byte(h.CompressionMethod)
	b[11] = byte(h.FilterMethod)
	b[12] = byte(h.InterlaceMethod)
	return b
}

// HasAlpha reports whether pixels carry an alpha sample.
func (h Header) HasAlpha() bool { return h.ColorType.HasAlpha() }

// bitsPerPixel is samplesPerPixel * bitDepth.
func (h Header) bitsPerPixel() int {
	return h.ColorType.samplesPerPixel() * int(h.BitDepth)
}

// bytesPerPixel is the filter unit: samplesPerPixel * ceil(bitDepth/8).
// Sub-byte depths round up to 1.
func (h Header) bytesPerPixel() int {
	return h.ColorType.samplesPerPixel() * ((int(h.BitDepth) + 7) / 8)
}

// bytesPerScanline is the number of data bytes (no filter byte) in a row of
// the given pixel width. Callers must have checked the image size first.
func (h Header) bytesPerScanline(width int) int {
	return int(h.rowBytes(width))
}

func (h Header) rowBytes(width int) uint64 {
	return (uint64(width)*uint64(h.bitsPerPixel()) + 7) / 8
}

// sizeAccumulator sums buffer sizes and notes when the total stops fitting
// in an int.
type sizeAccumulator struct {
	total    uint64
	overflow bool
}

func (a *sizeAccumulator) add(rowBytes uint64, rows int) {
	hi, n := bits.Mul64(rowBytes, uint64(rows))
	if hi != 0 || n > math.MaxInt-a.total {
		a.overflow = true
		return
	}
	a.total += n
}

// checkSize rejects headers whose scanline data or unfiltered raster would
// not fit in an addressable buffer.
func (h Header) checkSize() error {
	if _, err := scanlinesSize(h); err != nil {
		return err
	}
	var unfiltered sizeAccumulator
	unfiltered.add(h.rowBytes(h.Width), h.Height)
	if unfiltered.overflow {
		return formatError("image %dx%d is too large", h.Width, h.Height)
	}
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf("w: %d, h: %d, bitDepth: %d, colorType: %s, compression: %d, filter: %d, interlace: %s",
		h.Width, h.Height, h.BitDepth, h.ColorType, h.CompressionMethod, h.FilterMethod, h.InterlaceMethod)
}
