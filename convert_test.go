package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svanichkin/gustave/png"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 7))
	for y := 0; y < 7; y++ {
		for x := 0; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: byte(x * 20), G: byte(y * 30), B: byte(x ^ y), A: 255})
		}
	}
	return img
}

func TestEncodeDecodeFormats(t *testing.T) {
	src := testImage()
	for _, ext := range []string{".png", ".qoi", ".bmp", ".tiff"} {
		t.Run(ext, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encodeImage(&buf, ext, src, &png.SaveOptions{AttemptCompression: true}, nil))

			got, err := decodeImage(ext, buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, src.Bounds().Size(), got.Bounds().Size())
			for y := 0; y < 7; y++ {
				for x := 0; x < 12; x++ {
					want := src.NRGBAAt(x, y)
					c := color.NRGBAModel.Convert(got.At(got.Bounds().Min.X+x, got.Bounds().Min.Y+y)).(color.NRGBA)
					require.Equal(t, want, c, "%s (%d, %d)", ext, x, y)
				}
			}
		})
	}

	var buf bytes.Buffer
	assert.Error(t, encodeImage(&buf, ".webp", src, nil, nil))
}

func TestConvertJob(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.qoi")
	var buf bytes.Buffer
	require.NoError(t, encodeImage(&buf, ".qoi", testImage(), nil, nil))
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))

	out := filepath.Join(dir, "out.png")
	job := convertJob{
		In:          in,
		Out:         out,
		Texts:       []textChunk{{Keyword: "Title", Text: "converted"}},
		SplitPlanes: true,
	}
	require.NoError(t, job.Run())

	var texts []string
	img, err := png.OpenFile(out, png.WithChunkVisitor(png.ChunkVisitorFunc(func(_ png.Header, chunk png.ChunkHeader, data []byte, _ uint32) {
		if keyword, text, ok := splitText(chunk.Type, data); ok {
			texts = append(texts, keyword+"="+text)
		}
	})))
	require.NoError(t, err)
	assert.Equal(t, []string{"Title=converted"}, texts)
	assert.Equal(t, 12, img.Width())

	for _, suffix := range []string{"_Y.png", "_Cb.png", "_Cr.png"} {
		plane, err := png.OpenFile(filepath.Join(dir, "out"+suffix))
		require.NoError(t, err)
		assert.Equal(t, png.Indexed, plane.Header().ColorType)
	}

	_, err = png.OpenFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	assert.Error(t, convertJob{In: filepath.Join(dir, "missing.png"), Out: out}.Run())
}

func TestParseTexts(t *testing.T) {
	texts, err := parseTexts([]string{"Title=a=b", "Empty="})
	require.NoError(t, err)
	assert.Equal(t, []textChunk{{"Title", "a=b"}, {"Empty", ""}}, texts)

	_, err = parseTexts([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseTexts([]string{"=x"})
	assert.Error(t, err)
}

func TestSplitText(t *testing.T) {
	k, v, ok := splitText("tEXt", []byte("Comment\x00hi"))
	require.True(t, ok)
	assert.Equal(t, "Comment", k)
	assert.Equal(t, "hi", v)

	k, v, ok = splitText("iTXt", []byte("Title\x00\x00\x00en\x00Titel\x00Grüße"))
	require.True(t, ok)
	assert.Equal(t, "Title", k)
	assert.Equal(t, "Grüße", v)

	_, _, ok = splitText("iTXt", []byte("Title\x00\x01\x00\x00\x00zz"))
	assert.False(t, ok)
	_, _, ok = splitText("zTXt", []byte("a\x00b"))
	assert.False(t, ok)
}
