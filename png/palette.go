package png

// Palette maps a colour index to its pixel. Entries decoded from a PLTE
// chunk are opaque.
type Palette []Pixel

const maxPaletteEntries = 256

func parsePalette(data []byte) (Palette, error) {
	if len(data)%3 != 0 {
		return nil, formatError("PLTE length %d is not a multiple of 3", len(data))
	}
	n := len(data) / 3
	if n == 0 || n > maxPaletteEntries {
		return nil, formatError("PLTE has %d entries", n)
	}
	p := make(Palette, n)
	for i := range p {
		p[i] = RGB(data[3*i], data[3*i+1], data[3*i+2])
	}
	return p, nil
}

func (p Palette) marshal() []byte {
	b := make([]byte, 0, 3*len(p))
	for _, c := range p {
		b = append(b, c.R, c.G, c.B)
	}
	return b
}

func (p Palette) lookup(index int) (Pixel, error) {
	if index >= len(p) {
		return Pixel{}, formatError("palette index %d out of range (%d entries)", index, len(p))
	}
	return p[index], nil
}
