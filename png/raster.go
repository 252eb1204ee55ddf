package png

// raster owns the unfiltered pixel bytes of an image and the stride/offset
// arithmetic for addressing them. When offset is 1 every row still carries
// its leading filter-type byte; when 0 rows are packed back to back.
type raster struct {
	header Header
	data   []byte
	stride int
	offset int
}

func newRaster(h Header, filterBytes bool) *raster {
	offset := 0
	if filterBytes {
		offset = 1
	}
	stride := h.bytesPerScanline(h.Width) + offset
	return &raster{
		header: h,
		data:   make([]byte, stride*h.Height),
		stride: stride,
		offset: offset,
	}
}

// row returns the data bytes of row y, without the filter byte.
func (r *raster) row(y int) []byte {
	start := y*r.stride + r.offset
	return r.data[start : y*r.stride+r.stride]
}

func (r *raster) inBounds(x, y int) bool {
	return x >= 0 && x < r.header.Width && y >= 0 && y < r.header.Height
}

// pixel decodes the pixel at (x, y). pal is consulted for indexed images.
func (r *raster) pixel(x, y int, pal Palette) (Pixel, error) {
	if !r.inBounds(x, y) {
		return Pixel{}, rangeError("pixel (%d, %d) outside %dx%d image", x, y, r.header.Width, r.header.Height)
	}
	h := r.header
	row := r.row(y)
	depth := int(h.BitDepth)

	if depth < 8 {
		v := subByteSample(row, x, depth)
		if h.ColorType == Indexed {
			return pal.lookup(v)
		}
		return Gray(scaleSample(v, depth)), nil
	}

	// 16-bit samples are reduced to their most significant byte.
	step := depth / 8
	start := x * h.bytesPerPixel()
	sample := func(i int) byte { return row[start+i*step] }

	switch h.ColorType {
	case Indexed:
		return pal.lookup(int(row[start]))
	case Grayscale:
		return Gray(sample(0)), nil
	case GrayscaleAlpha:
		return GrayAlpha(sample(0), sample(1)), nil
	case Truecolor:
		return RGB(sample(0), sample(1), sample(2)), nil
	case TruecolorAlpha:
		return RGBA(sample(0), sample(1), sample(2), sample(3)), nil
	}
	return Pixel{}, formatError("unsupported color type %s", h.ColorType)
}

// setRGBA stores p at (x, y) in an 8-bit truecolor or truecolor+alpha raster.
func (r *raster) setRGBA(x, y int, p Pixel) {
	bpp := r.header.bytesPerPixel()
	px := r.row(y)[x*bpp:]
	px[0], px[1], px[2] = p.R, p.G, p.B
	if bpp == 4 {
		px[3] = p.A
	}
}

// copyPixel copies the bits of pixel px in src (a packed row with the same
// header) to pixel (x, y) of r.
func (r *raster) copyPixel(x, y int, src []byte, px int) {
	bits := r.header.bitsPerPixel()
	dst := r.row(y)
	if bits < 8 {
		depth := int(r.header.BitDepth)
		setSubByteSample(dst, x, depth, subByteSample(src, px, depth))
		return
	}
	n := bits / 8
	copy(dst[x*n:x*n+n], src[px*n:px*n+n])
}

// subByteSample extracts the depth-bit field for pixel x from a packed row.
// Fields are packed most significant bits first.
func subByteSample(row []byte, x, depth int) int {
	bit := x * depth
	shift := 8 - depth - bit%8
	mask := 1<<depth - 1
	return int(row[bit/8]>>shift) & mask
}

func setSubByteSample(row []byte, x, depth, v int) {
	bit := x * depth
	shift := 8 - depth - bit%8
	mask := byte(1<<depth-1) << shift
	row[bit/8] = row[bit/8]&^mask | byte(v<<shift)&mask
}

// scaleSample stretches a depth-bit grayscale value to 0..255.
func scaleSample(v, depth int) byte {
	return byte(v * 255 / (1<<depth - 1))
}
