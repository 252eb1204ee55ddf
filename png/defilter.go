package png

import "sync"

// scanlinesSize is the number of decompressed bytes an image with header h
// needs: every scanline of every non-empty pass plus its filter byte.
func scanlinesSize(h Header) (int64, error) {
	var size sizeAccumulator
	if h.InterlaceMethod == InterlaceNone {
		size.add(1+h.rowBytes(h.Width), h.Height)
	} else {
		for _, pass := range adam7Passes {
			w, ht := pass.size(h.Width, h.Height)
			if w == 0 || ht == 0 {
				continue
			}
			size.add(1+h.rowBytes(w), ht)
		}
	}
	if size.overflow {
		return 0, formatError("image %dx%d is too large", h.Width, h.Height)
	}
	return int64(size.total), nil
}

// defilter reverses the scanline filters in data and returns the unfiltered
// raster. Non-interlaced images are reversed in place and keep their filter
// bytes; Adam7 passes are reversed independently and scattered into a fresh
// raster without filter bytes.
func defilter(data []byte, h Header) (*raster, error) {
	need, err := scanlinesSize(h)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < need {
		return nil, formatError("not enough pixel data: have %d bytes, need %d", len(data), need)
	}

	if h.InterlaceMethod == InterlaceNone {
		stride := 1 + h.bytesPerScanline(h.Width)
		data = data[:stride*h.Height]
		if err := defilterRows(data, stride, h.Height, h.bytesPerPixel()); err != nil {
			return nil, err
		}
		return &raster{header: h, data: data, stride: stride, offset: 1}, nil
	}

	// Passes share no bytes, so they are reversed concurrently. Scattering
	// stays sequential because sub-byte passes write into shared bytes.
	type passData struct {
		pass   adam7Pass
		w, h   int
		stride int
		data   []byte
	}
	var passes []passData
	pos := 0
	for _, pass := range adam7Passes {
		w, ht := pass.size(h.Width, h.Height)
		if w == 0 || ht == 0 {
			continue
		}
		stride := 1 + h.bytesPerScanline(w)
		passes = append(passes, passData{pass: pass, w: w, h: ht, stride: stride, data: data[pos : pos+stride*ht]})
		pos += stride * ht
	}

	errs := make([]error, len(passes))
	var wg sync.WaitGroup
	for i := range passes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := passes[i]
			errs[i] = defilterRows(p.data, p.stride, p.h, h.bytesPerPixel())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := newRaster(h, false)
	for _, p := range passes {
		for py := 0; py < p.h; py++ {
			row := p.data[py*p.stride+1 : (py+1)*p.stride]
			for px := 0; px < p.w; px++ {
				x, y := p.pass.position(px, py)
				out.copyPixel(x, y, row, px)
			}
		}
	}
	return out, nil
}

// defilterRows reverses height filter-tagged scanlines of stride bytes each.
func defilterRows(data []byte, stride, height, bpp int) error {
	var prev []byte
	for y := 0; y < height; y++ {
		line := data[y*stride : (y+1)*stride]
		cur := line[1:]
		if err := reverseFilter(FilterType(line[0]), cur, prev, bpp); err != nil {
			return err
		}
		prev = cur
	}
	return nil
}
