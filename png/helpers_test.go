package png

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
)

type testChunk struct {
	typ  string
	data []byte
}

// encodeRaw writes a PNG with the given header, optional palette and
// already-filtered scanlines. Extra chunks go between PLTE and IDAT.
func encodeRaw(t testing.TB, h Header, pal Palette, scanlines []byte, extra ...testChunk) []byte {
	t.Helper()
	compressed, err := compress(scanlines, flate.DefaultCompression)
	require.NoError(t, err)

	var buf bytes.Buffer
	cw := chunkWriter{w: &buf}
	cw.writeSignature()
	cw.writeChunk(chunkIHDR, h.marshal())
	if pal != nil {
		cw.writeChunk(chunkPLTE, pal.marshal())
	}
	for _, c := range extra {
		cw.writeChunk(c.typ, c.data)
	}
	cw.writeChunk(chunkIDAT, compressed)
	cw.writeChunk(chunkIEND, nil)
	require.NoError(t, cw.err)
	return buf.Bytes()
}

// randomRaster fills a packed (no filter byte) raster for h with random
// samples. Indexed samples stay below paletteSize.
func randomRaster(rng *rand.Rand, h Header, paletteSize int) *raster {
	r := newRaster(h, false)
	if h.ColorType == Indexed {
		for y := 0; y < h.Height; y++ {
			row := r.row(y)
			for x := 0; x < h.Width; x++ {
				v := rng.Intn(paletteSize)
				if h.BitDepth < 8 {
					setSubByteSample(row, x, int(h.BitDepth), v)
				} else {
					row[x] = byte(v)
				}
			}
		}
		return r
	}
	rng.Read(r.data)
	return r
}

// filterRows filters every row of a packed sub-image with a random filter
// and returns the filter-tagged scanlines.
func filterRows(rng *rand.Rand, rows [][]byte, bpp int) []byte {
	var out []byte
	var prev []byte
	for _, row := range rows {
		f := FilterType(rng.Intn(numFilters))
		line := make([]byte, len(row))
		applyFilter(f, line, row, prev, bpp)
		out = append(out, byte(f))
		out = append(out, line...)
		prev = row
	}
	return out
}

// scanlinesFor produces filtered scanline data for a packed raster,
// splitting it into Adam7 passes when the header asks for interlacing.
func scanlinesFor(rng *rand.Rand, r *raster) []byte {
	h := r.header
	if h.InterlaceMethod == InterlaceNone {
		rows := make([][]byte, h.Height)
		for y := range rows {
			rows[y] = r.row(y)
		}
		return filterRows(rng, rows, h.bytesPerPixel())
	}

	var out []byte
	for _, pass := range adam7Passes {
		w, ht := pass.size(h.Width, h.Height)
		if w == 0 || ht == 0 {
			continue
		}
		sub := h
		sub.Width, sub.Height = w, ht
		sub.InterlaceMethod = InterlaceNone
		packed := newRaster(sub, false)
		for py := 0; py < ht; py++ {
			for px := 0; px < w; px++ {
				x, y := pass.position(px, py)
				packed.copyPixel(px, py, r.row(y), x)
			}
		}
		rows := make([][]byte, ht)
		for y := range rows {
			rows[y] = packed.row(y)
		}
		out = append(out, filterRows(rng, rows, h.bytesPerPixel())...)
	}
	return out
}

func mustHeader(t testing.TB, width, height int, depth byte, ct ColorType, interlace InterlaceMethod) Header {
	t.Helper()
	h, err := NewHeader(width, height, depth, ct, CompressionDeflate, FilterAdaptive, interlace)
	require.NoError(t, err)
	return h
}

func randomPalette(rng *rand.Rand, n int) Palette {
	p := make(Palette, n)
	for i := range p {
		p[i] = RGB(byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)))
	}
	return p
}
