package png

import "sort"

// colorKey packs a colour as R<<24 | G<<16 | B<<8 | A.
type colorKey uint32

func keyOf(p Pixel) colorKey {
	return colorKey(p.R)<<24 | colorKey(p.G)<<16 | colorKey(p.B)<<8 | colorKey(p.A)
}

func (k colorKey) pixel() Pixel {
	return RGBA(byte(k>>24), byte(k>>16), byte(k>>8), byte(k))
}

type colorCount struct {
	count int
	seq   int
}

// colorTracker counts how many canvas pixels hold each colour. Once more
// than maxPaletteEntries colours have been seen it gives up for good.
type colorTracker struct {
	counts        map[colorKey]*colorCount
	nextSeq       int
	tooManyColors bool
}

func newColorTracker(background Pixel, pixels int) *colorTracker {
	t := &colorTracker{counts: make(map[colorKey]*colorCount)}
	t.add(keyOf(background), pixels)
	return t
}

func (t *colorTracker) add(k colorKey, n int) {
	if c, ok := t.counts[k]; ok {
		c.count += n
		return
	}
	t.counts[k] = &colorCount{count: n, seq: t.nextSeq}
	t.nextSeq++
	if len(t.counts) > maxPaletteEntries {
		t.tooManyColors = true
		t.counts = nil
	}
}

// replace records one pixel changing from old to new.
func (t *colorTracker) replace(old, next Pixel) {
	if t.tooManyColors {
		return
	}
	oldKey, newKey := keyOf(old), keyOf(next)
	if oldKey == newKey {
		return
	}
	if c, ok := t.counts[oldKey]; ok {
		c.count--
		if c.count <= 0 {
			delete(t.counts, oldKey)
		}
	}
	t.add(newKey, 1)
}

// palette returns the tracked colours by descending count, ties broken by
// first insertion, with the index of every colour.
func (t *colorTracker) palette() (Palette, map[colorKey]byte) {
	keys := make([]colorKey, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := t.counts[keys[i]], t.counts[keys[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.seq < b.seq
	})

	pal := make(Palette, len(keys))
	index := make(map[colorKey]byte, len(keys))
	for i, k := range keys {
		pal[i] = k.pixel()
		index[k] = byte(i)
	}
	return pal, index
}
