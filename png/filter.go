package png

import "fmt"

// FilterType is the per-scanline predictive filter.
type FilterType byte

const (
	FilterNone    FilterType = 0
	FilterSub     FilterType = 1
	FilterUp      FilterType = 2
	FilterAverage FilterType = 3
	FilterPaeth   FilterType = 4
	numFilters               = 5
)

func (f FilterType) String() string {
	switch f {
	case FilterNone:
		return "None"
	case FilterSub:
		return "Sub"
	case FilterUp:
		return "Up"
	case FilterAverage:
		return "Average"
	case FilterPaeth:
		return "Paeth"
	}
	return fmt.Sprintf("FilterType(%d)", byte(f))
}

// paeth returns whichever of left, up and upLeft is closest to
// left+up-upLeft. Ties favour left, then up.
func paeth(left, up, upLeft byte) byte {
	p := int(left) + int(up) - int(upLeft)
	pa := abs(p - int(left))
	pb := abs(p - int(up))
	pc := abs(p - int(upLeft))
	if pa <= pb && pa <= pc {
		return left
	}
	if pb <= pc {
		return up
	}
	return upLeft
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// reverseFilter undoes filter f on cur in place. prev is the already
// reversed previous scanline of the same (sub-)image, or nil for the first
// row. bpp is the filter unit in bytes.
func reverseFilter(f FilterType, cur, prev []byte, bpp int) error {
	switch f {
	case FilterNone:
	case FilterSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case FilterUp:
		if prev == nil {
			return nil
		}
		for i, p := range prev[:len(cur)] {
			cur[i] += p
		}
	case FilterAverage:
		if prev == nil {
			for i := bpp; i < len(cur); i++ {
				cur[i] += cur[i-bpp] / 2
			}
			return nil
		}
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i] / 2
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += byte((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case FilterPaeth:
		if prev == nil {
			// With no row above, Paeth degenerates to Sub.
			for i := bpp; i < len(cur); i++ {
				cur[i] += cur[i-bpp]
			}
			return nil
		}
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prev[i]
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += paeth(cur[i-bpp], prev[i], prev[i-bpp])
		}
	default:
		return formatError("unknown filter type %d", byte(f))
	}
	return nil
}

// applyFilter writes filter f of src into dst. prev is the unfiltered
// previous row, or nil for the first row.
func applyFilter(f FilterType, dst, src, prev []byte, bpp int) {
	for i := range src {
		var left, up, upLeft byte
		if i >= bpp {
			left = src[i-bpp]
		}
		if prev != nil {
			up = prev[i]
			if i >= bpp {
				upLeft = prev[i-bpp]
			}
		}
		switch f {
		case FilterNone:
			dst[i] = src[i]
		case FilterSub:
			dst[i] = src[i] - left
		case FilterUp:
			dst[i] = src[i] - up
		case FilterAverage:
			dst[i] = src[i] - byte((int(left)+int(up))/2)
		case FilterPaeth:
			dst[i] = src[i] - paeth(left, up, upLeft)
		}
	}
}

// filterCost is the sum of the filtered bytes read as signed values, the
// minimum-sum-of-absolute-differences heuristic.
func filterCost(filtered []byte) int {
	sum := 0
	for _, b := range filtered {
		sum += abs(int(int8(b)))
	}
	return sum
}

// chooseFilter tries all five filters on src and writes the cheapest into
// dst, which must have room for len(src) bytes. scratch must be the same size.
// Ties keep the lower-numbered filter.
func chooseFilter(dst, scratch, src, prev []byte, bpp int) FilterType {
	best := FilterNone
	bestCost := -1
	for f := FilterNone; f < numFilters; f++ {
		applyFilter(f, scratch, src, prev, bpp)
		cost := filterCost(scratch)
		if bestCost < 0 || cost < bestCost {
			best, bestCost = f, cost
			copy(dst, scratch)
		}
	}
	return best
}
