package png

import (
	"errors"
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelEquality(t *testing.T) {
	assert.NotEqual(t, Gray(10), RGB(10, 10, 10))
	assert.Equal(t, RGB(1, 2, 3), RGBA(1, 2, 3, 255))
	assert.Equal(t, "(1, 2, 3, 4)", RGBA(1, 2, 3, 4).String())

	seen := map[Pixel]int{Gray(5): 1}
	seen[RGB(5, 5, 5)] = 2
	assert.Len(t, seen, 2)
}

func TestPixelColor(t *testing.T) {
	var c color.Color = RGBA(255, 0, 0, 128)
	r, g, b, a := c.RGBA()
	assert.Equal(t, uint32(0x8080), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	assert.Equal(t, uint32(0x8080), a)

	assert.Equal(t, Gray(7), pixelFromColor(color.Gray{Y: 7}))
	assert.Equal(t, RGBA(10, 20, 30, 40), pixelFromColor(color.NRGBA{R: 10, G: 20, B: 30, A: 40}))
	assert.Equal(t, RGB(9, 8, 7), pixelFromColor(color.RGBA{R: 9, G: 8, B: 7, A: 255}))
}

func TestParsePalette(t *testing.T) {
	pal, err := parsePalette([]byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, Palette{RGB(1, 2, 3), RGB(4, 5, 6)}, pal)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, pal.marshal())

	for _, n := range []int{0, 4, 3 * 257} {
		_, err := parsePalette(make([]byte, n))
		assert.True(t, IsFormatError(err), "length %d", n)
	}
}

func TestErrorCodes(t *testing.T) {
	err := fmt.Errorf("decoding: %w", rangeError("pixel (%d, %d) outside", 3, 4))
	assert.True(t, IsRangeError(err))
	assert.False(t, IsFormatError(err))
	assert.Equal(t, "decoding: png: RangeError: pixel (3, 4) outside", err.Error())

	wrapped := wrapFormatError(errors.New("boom"), "reading %s", "IDAT")
	assert.Equal(t, "png: FormatError: reading IDAT: boom", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")

	assert.False(t, errors.Is(ErrFinalized, ErrSignature))
	assert.True(t, errors.Is(&Error{Code: CodeState, Message: "builder already saved"}, ErrFinalized))
	assert.Equal(t, "Code(42)", Code(42).String())

	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
}
