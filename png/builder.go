package png

import (
	"bytes"
	"image"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"github.com/svanichkin/gustave/internal/oops"
)

// SaveOptions configures Builder.Save.
type SaveOptions struct {
	// AttemptCompression deflates at the best compression level and, for
	// truecolor output, picks the cheapest of the five filters per row.
	// Without it rows are stored unfiltered at the fastest level.
	AttemptCompression bool

	// Logger receives debug output about encoding decisions. Nil disables it.
	Logger *zerolog.Logger
}

// Builder accumulates pixels for a new 8-bit truecolor image and encodes it.
// All pixels start as black, transparent when the builder has alpha.
//
// The setters are chainable; the first failure (an out-of-range coordinate,
// or any mutation after Save) is kept and returned by Err and Save.
// A Builder is not safe for concurrent use.
type Builder struct {
	header    Header
	raw       *raster
	colors    *colorTracker
	texts     [][]byte
	finalized bool
	err       error
}

// maxCanvasBytes bounds the accumulation buffer of a Builder.
const maxCanvasBytes = 1<<31 - 1

// Create returns a builder for a width x height canvas.
func Create(width, height int, hasAlpha bool) (*Builder, error) {
	colorType := Truecolor
	background := RGB(0, 0, 0)
	if hasAlpha {
		colorType = TruecolorAlpha
		background = RGBA(0, 0, 0, 0)
	}
	h, err := NewHeader(width, height, 8, colorType, CompressionDeflate, FilterAdaptive, InterlaceNone)
	if err != nil {
		return nil, err
	}
	var size sizeAccumulator
	size.add(1+h.rowBytes(width), height)
	if size.overflow || size.total > maxCanvasBytes {
		return nil, formatError("canvas %dx%d needs more than %d bytes", width, height, maxCanvasBytes)
	}
	return &Builder{
		header: h,
		raw:    newRaster(h, true),
		colors: newColorTracker(background, width*height),
	}, nil
}

// FromImage copies every pixel of img into a new builder. The builder has an
// alpha channel unless img reports itself opaque.
func FromImage(img image.Image) (*Builder, error) {
	bounds := img.Bounds()
	hasAlpha := true
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		hasAlpha = false
	}
	b, err := Create(bounds.Dx(), bounds.Dy(), hasAlpha)
	if err != nil {
		return nil, err
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			b.SetPixel(pixelFromColor(img.At(bounds.Min.X+x, bounds.Min.Y+y)), x, y)
		}
	}
	return b, b.Err()
}

func (b *Builder) Width() int { return b.header.Width }
func (b *Builder) Height() int { return b.header.Height }
func (b *Builder) HasAlpha() bool { return b.header.HasAlpha() }

// Err returns the first error recorded by a setter.
func (b *Builder) Err() error { return b.err }

func (b *Builder) mutable() bool {
	if b.err != nil {
		return false
	}
	if b.finalized {
		b.err = ErrFinalized
		return false
	}
	return true
}

// SetPixel stores p at (x, y). Without an alpha channel p.A is ignored.
func (b *Builder) SetPixel(p Pixel, x, y int) *Builder {
	if !b.mutable() {
		return b
	}
	if !b.raw.inBounds(x, y) {
		b.err = rangeError("pixel (%d, %d) outside %dx%d canvas", x, y, b.header.Width, b.header.Height)
		return b
	}
	p.IsGrayscale = false
	if !b.HasAlpha() {
		p.A = 255
	}
	old, _ := b.raw.pixel(x, y, nil)
	b.raw.setRGBA(x, y, p)
	b.colors.replace(old, p)
	return b
}

// SetRGB stores an opaque colour at (x, y).
func (b *Builder) SetRGB(r, g, bl byte, x, y int) *Builder {
	return b.SetPixel(RGB(r, g, bl), x, y)
}

// Pixel returns the pixel currently stored at (x, y), as it will decode.
func (b *Builder) Pixel(x, y int) (Pixel, error) {
	return b.raw.pixel(x, y, nil)
}

// StoreText adds an uncompressed iTXt chunk. Keywords are 1-79 bytes of
// printable Latin-1; text is UTF-8.
func (b *Builder) StoreText(keyword, text string) *Builder {
	if !b.mutable() {
		return b
	}
	if len(keyword) == 0 || len(keyword) > 79 {
		b.err = formatError("iTXt keyword must be 1-79 bytes, got %d", len(keyword))
		return b
	}
	for i := 0; i < len(keyword); i++ {
		c := keyword[i]
		if c < 32 || (c > 126 && c < 161) {
			b.err = formatError("iTXt keyword %q has unprintable byte 0x%02x", keyword, c)
			return b
		}
	}
	var payload bytes.Buffer
	payload.WriteString(keyword)
	payload.WriteByte(0)
	payload.WriteByte(0) // compression flag
	payload.WriteByte(0) // compression method
	payload.WriteByte(0) // empty language tag
	payload.WriteByte(0) // empty translated keyword
	payload.WriteString(text)
	b.texts = append(b.texts, payload.Bytes())
	return b
}

// Save encodes the image to w. The builder is finalized by the first call;
// Save may be repeated but setters fail afterwards.
func (b *Builder) Save(w io.Writer, opts *SaveOptions) error {
	if b.err != nil {
		return b.err
	}
	b.finalized = true
	if opts == nil {
		opts = &SaveOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &nopLogger
	}

	header, palette, scanlines := b.encodeScanlines(opts.AttemptCompression)
	level := flate.BestSpeed
	if opts.AttemptCompression {
		level = flate.BestCompression
	}
	logger.Debug().
		Str("colorType", header.ColorType.String()).
		Int("bitDepth", int(header.BitDepth)).
		Int("paletteSize", len(palette)).
		Int("rawBytes", len(scanlines)).
		Msg("encoding image")

	compressed, err := compress(scanlines, level)
	if err != nil {
		return err
	}

	cw := chunkWriter{w: w}
	cw.writeSignature()
	cw.writeChunk(chunkIHDR, header.marshal())
	if palette != nil {
		cw.writeChunk(chunkPLTE, palette.marshal())
	}
	for _, text := range b.texts {
		cw.writeChunk(chunkITXt, text)
	}
	cw.writeChunk(chunkIDAT, compressed)
	cw.writeChunk(chunkIEND, nil)
	if cw.err != nil {
		return oops.New(cw.err, "failed to write PNG")
	}
	return nil
}

// Bytes encodes the image and returns the PNG stream.
func (b *Builder) Bytes(opts *SaveOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Save(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile encodes the image into a new file at path.
func (b *Builder) SaveFile(path string, opts *SaveOptions) error {
	data, err := b.Bytes(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oops.New(err, "failed to write %s", path)
	}
	return nil
}

// encodeScanlines decides between indexed and truecolor output and returns
// the header, the palette (nil for truecolor) and the filtered scanlines to
// compress.
func (b *Builder) encodeScanlines(adaptive bool) (Header, Palette, []byte) {
	if !b.HasAlpha() && !b.colors.tooManyColors {
		return b.encodeIndexed()
	}
	if adaptive {
		return b.header, nil, filterScanlines(b.raw)
	}
	// Filter bytes in the accumulation buffer are all None.
	return b.header, nil, b.raw.data
}

// encodeIndexed remaps every pixel to its palette index, packing two 4-bit
// indices per byte when the palette has at most 16 entries.
func (b *Builder) encodeIndexed() (Header, Palette, []byte) {
	pal, index := b.colors.palette()
	depth := byte(8)
	if len(pal) <= 16 {
		depth = 4
	}
	h := b.header
	h.ColorType = Indexed
	h.BitDepth = depth

	var buf bytes.Buffer
	buf.Grow(h.Height * (1 + h.bytesPerScanline(h.Width)))
	bw := newBitWriter(&buf)
	for y := 0; y < h.Height; y++ {
		bw.writeByte(byte(FilterNone))
		row := b.raw.row(y)
		for x := 0; x < h.Width; x++ {
			k := keyOf(RGB(row[3*x], row[3*x+1], row[3*x+2]))
			bw.writeBits(index[k], depth)
		}
		bw.flush()
	}
	return h, pal, buf.Bytes()
}

// filterScanlines picks the cheapest filter for every row of r. Rows only
// read the unfiltered previous row, so they are filtered in parallel stripes.
func filterScanlines(r *raster) []byte {
	h := r.header
	out := make([]byte, len(r.data))
	bpp := h.bytesPerPixel()

	workers := min(runtime.NumCPU(), h.Height)
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (h.Height + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		y0 := i * rowsPerWorker
		if y0 >= h.Height {
			break
		}
		y1 := min(y0+rowsPerWorker, h.Height)

		wg.Add(1)
		go filterStripe(r, out, bpp, y0, y1, &wg)
	}
	wg.Wait()
	return out
}

func filterStripe(r *raster, out []byte, bpp, yStart, yEnd int, wg *sync.WaitGroup) {
	defer wg.Done()
	scratch := make([]byte, r.stride-1)
	for y := yStart; y < yEnd; y++ {
		var prev []byte
		if y > 0 {
			prev = r.row(y - 1)
		}
		line := out[y*r.stride : (y+1)*r.stride]
		line[0] = byte(chooseFilter(line[1:], scratch, r.row(y), prev, bpp))
	}
}
