// Package png decodes and encodes PNG images held entirely in memory.
//
// Open parses the chunk stream, inflates the image data, reverses the
// scanline filters (including Adam7 interlacing) and returns an Image whose
// pixels are addressed by coordinate at any bit depth and colour type.
// Builder goes the other way: it accumulates truecolor pixels, tracks how
// many distinct colours are in use and writes an indexed image when the
// colours fit in a palette.
package png

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/svanichkin/gustave/internal/oops"
)

// ChunkVisitor receives every ancillary chunk the decoder encounters. It
// observes only; decoding is unaffected by what it does.
type ChunkVisitor interface {
	Visit(header Header, chunk ChunkHeader, data []byte, crc uint32)
}

// ChunkVisitorFunc adapts a function to ChunkVisitor.
type ChunkVisitorFunc func(header Header, chunk ChunkHeader, data []byte, crc uint32)

func (f ChunkVisitorFunc) Visit(header Header, chunk ChunkHeader, data []byte, crc uint32) {
	f(header, chunk, data, crc)
}

type decodeOptions struct {
	visitor   ChunkVisitor
	lenient   bool
	logger    *zerolog.Logger
	maxPixels int64
}

// Option configures Open.
type Option func(*decodeOptions)

// WithChunkVisitor forwards ancillary chunks to v.
func WithChunkVisitor(v ChunkVisitor) Option {
	return func(o *decodeOptions) { o.visitor = v }
}

// WithLenientChecksums logs CRC-32 and Adler-32 mismatches instead of
// failing the decode.
func WithLenientChecksums() Option {
	return func(o *decodeOptions) { o.lenient = true }
}

// WithLogger sets the logger used for chunk tracing and checksum warnings.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *decodeOptions) { o.logger = logger }
}

// WithMaxPixels rejects images with more than n pixels before allocating
// their buffers. Zero means no limit.
func WithMaxPixels(n int64) Option {
	return func(o *decodeOptions) { o.maxPixels = n }
}

var nopLogger = zerolog.Nop()

// OpenFile decodes the PNG file at path.
func OpenFile(path string, opts ...Option) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.New(err, "failed to open %s", path)
	}
	defer f.Close()
	return Open(f, opts...)
}

// OpenBytes decodes a PNG held in memory.
func OpenBytes(data []byte, opts ...Option) (*Image, error) {
	return Open(bytes.NewReader(data), opts...)
}

// Open decodes a whole PNG stream. It reads r to the end: chunks after IEND
// are an error. Decoding is all-or-nothing.
func Open(r io.Reader, opts ...Option) (*Image, error) {
	o := decodeOptions{logger: &nopLogger}
	for _, opt := range opts {
		opt(&o)
	}
	d := &decoder{
		cr:   chunkReader{r: r},
		opts: o,
	}
	return d.decode()
}

type decoder struct {
	cr      chunkReader
	opts    decodeOptions
	header  Header
	palette Palette
	idat    bytes.Buffer

	seenIDAT bool
	seenIEND bool
}

func (d *decoder) checkCrc(chunk ChunkHeader, data []byte, crc uint32) error {
	got := chunkCrc(chunk.Type, data)
	if got == crc {
		return nil
	}
	if d.opts.lenient {
		d.opts.logger.Warn().
			Str("chunk", chunk.Type).
			Int64("position", chunk.Position).
			Uint32("expected", crc).
			Uint32("actual", got).
			Msg("chunk CRC mismatch")
		return nil
	}
	return &Error{Code: CodeChecksum, Message: "CRC mismatch in " + chunk.String()}
}

func (d *decoder) decode() (*Image, error) {
	if err := d.cr.checkSignature(); err != nil {
		return nil, err
	}
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	for {
		chunk, data, crc, err := d.cr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if d.seenIEND {
			return nil, formatError("found chunk %s after IEND", chunk)
		}
		d.opts.logger.Debug().
			Str("chunk", chunk.Type).
			Int64("position", chunk.Position).
			Int("length", chunk.Length).
			Msg("read chunk")
		if err := d.checkCrc(chunk, data, crc); err != nil {
			return nil, err
		}
		if err := d.handleChunk(chunk, data, crc); err != nil {
			return nil, err
		}
	}

	if !d.seenIEND {
		return nil, formatError("missing IEND chunk")
	}
	if !d.seenIDAT {
		return nil, formatError("missing IDAT chunk")
	}
	if d.header.ColorType == Indexed && d.palette == nil {
		return nil, formatError("indexed image has no PLTE chunk")
	}

	need, err := scanlinesSize(d.header)
	if err != nil {
		return nil, err
	}
	raw, err := decompress(d.idat.Bytes(), need+1, !d.opts.lenient, d.opts.logger)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > need {
		d.opts.logger.Debug().Int64("expected", need).Msg("ignoring decompressed bytes past the last scanline")
	}
	ras, err := defilter(raw, d.header)
	if err != nil {
		return nil, err
	}

	img := &Image{header: d.header, raster: ras}
	if d.header.ColorType == Indexed {
		img.palette = d.palette
	}
	return img, nil
}

func (d *decoder) readHeader() error {
	chunk, data, crc, err := d.cr.next()
	if errors.Is(err, io.EOF) {
		return formatError("stream contains no chunks")
	}
	if err != nil {
		return err
	}
	if chunk.Type != chunkIHDR {
		return formatError("first chunk is %s, expected IHDR", chunk)
	}
	if chunk.Length != headerLength {
		return formatError("IHDR has length %d, expected %d", chunk.Length, headerLength)
	}
	if err := d.checkCrc(chunk, data, crc); err != nil {
		return err
	}
	h, err := parseHeader(data)
	if err != nil {
		return err
	}
	if d.opts.maxPixels > 0 && int64(h.Width)*int64(h.Height) > d.opts.maxPixels {
		return formatError("image is %dx%d, more than %d pixels", h.Width, h.Height, d.opts.maxPixels)
	}
	if err := h.checkSize(); err != nil {
		return err
	}
	d.header = h
	d.opts.logger.Debug().Str("header", h.String()).Msg("read IHDR")
	return nil
}

func (d *decoder) handleChunk(chunk ChunkHeader, data []byte, crc uint32) error {
	if !chunk.IsCritical() {
		if d.opts.visitor != nil {
			d.opts.visitor.Visit(d.header, chunk, data, crc)
		}
		return nil
	}

	switch chunk.Type {
	case chunkIHDR:
		return formatError("duplicate IHDR at %d", chunk.Position)
	case chunkPLTE:
		if d.palette != nil {
			return formatError("duplicate PLTE at %d", chunk.Position)
		}
		if d.seenIDAT {
			return formatError("PLTE after IDAT at %d", chunk.Position)
		}
		p, err := parsePalette(data)
		if err != nil {
			return err
		}
		if d.header.ColorType == Indexed && len(p) > 1<<d.header.BitDepth {
			return formatError("PLTE has %d entries, more than bit depth %d allows", len(p), d.header.BitDepth)
		}
		d.palette = p
	case chunkIDAT:
		d.seenIDAT = true
		d.idat.Write(data)
	case chunkIEND:
		if chunk.Length != 0 {
			return formatError("IEND has length %d", chunk.Length)
		}
		d.seenIEND = true
	default:
		return formatError("unrecognized critical chunk %s", chunk)
	}
	return nil
}
