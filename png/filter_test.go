package png

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFilterVectors(t *testing.T) {
	prev := []byte{10, 20, 30}
	src := []byte{15, 25, 40}
	for _, tc := range []struct {
		f    FilterType
		want []byte
	}{
		{FilterNone, []byte{15, 25, 40}},
		{FilterSub, []byte{15, 10, 15}},
		{FilterUp, []byte{5, 5, 10}},
		{FilterAverage, []byte{10, 8, 13}},
		{FilterPaeth, []byte{5, 5, 10}},
	} {
		t.Run(tc.f.String(), func(t *testing.T) {
			dst := make([]byte, len(src))
			applyFilter(tc.f, dst, src, prev, 1)
			assert.Equal(t, tc.want, dst)

			require.NoError(t, reverseFilter(tc.f, dst, prev, 1))
			assert.Equal(t, src, dst)
		})
	}
}

func TestReverseFilterFirstRow(t *testing.T) {
	// Without a previous row Up is a no-op and Average and Paeth only look left.
	cur := []byte{4, 6, 8, 10}
	require.NoError(t, reverseFilter(FilterUp, cur, nil, 2))
	assert.Equal(t, []byte{4, 6, 8, 10}, cur)

	cur = []byte{4, 6, 8, 10}
	require.NoError(t, reverseFilter(FilterAverage, cur, nil, 2))
	assert.Equal(t, []byte{4, 6, 10, 13}, cur)

	cur = []byte{4, 6, 8, 10}
	require.NoError(t, reverseFilter(FilterPaeth, cur, nil, 2))
	assert.Equal(t, []byte{4, 6, 12, 16}, cur)
}

func TestReverseFilterUnknown(t *testing.T) {
	err := reverseFilter(FilterType(5), []byte{1}, nil, 1)
	assert.True(t, IsFormatError(err))
}

func TestPaethTies(t *testing.T) {
	assert.Equal(t, byte(5), paeth(5, 5, 5))
	// left and up equally close: left wins.
	assert.Equal(t, byte(10), paeth(10, 10, 4))
	// up and upLeft equally close: up wins.
	assert.Equal(t, byte(2), paeth(14, 2, 10))
	assert.Equal(t, byte(5), paeth(3, 7, 5))
}

func TestFilterRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, bpp := range []int{1, 2, 3, 4, 6, 8} {
		for f := FilterNone; f < numFilters; f++ {
			for _, first := range []bool{true, false} {
				src := make([]byte, bpp*9)
				rng.Read(src)
				var prev []byte
				if !first {
					prev = make([]byte, len(src))
					rng.Read(prev)
				}
				line := make([]byte, len(src))
				applyFilter(f, line, src, prev, bpp)
				require.NoError(t, reverseFilter(f, line, prev, bpp))
				assert.Equal(t, src, line, "filter %s bpp %d first row %v", f, bpp, first)
			}
		}
	}
}

func TestChooseFilter(t *testing.T) {
	src := []byte{7, 7, 7, 7, 7, 7}
	prev := []byte{7, 7, 7, 7, 7, 7}
	dst := make([]byte, len(src))
	scratch := make([]byte, len(src))

	f := chooseFilter(dst, scratch, src, prev, 1)
	assert.Equal(t, FilterUp, f)
	assert.Equal(t, make([]byte, len(src)), dst)

	// A ramp with no row above is cheapest under Sub.
	ramp := []byte{1, 2, 3, 4, 5, 6}
	f = chooseFilter(dst, scratch, ramp, nil, 1)
	assert.Equal(t, FilterSub, f)
	require.NoError(t, reverseFilter(f, dst, nil, 1))
	assert.Equal(t, ramp, dst)
}

func TestFilterCost(t *testing.T) {
	assert.Equal(t, 0, filterCost([]byte{0, 0}))
	assert.Equal(t, 1+1+128+127, filterCost([]byte{1, 0xff, 0x80, 0x7f}))
}
