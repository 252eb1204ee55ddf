package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/svanichkin/gustave/internal/logging"
	"github.com/svanichkin/gustave/internal/oops"
	"github.com/svanichkin/gustave/png"
	"github.com/xfmoulet/qoi"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type textChunk struct {
	Keyword string
	Text    string
}

type convertJob struct {
	In, Out     string
	Compress    bool
	Texts       []textChunk
	DecodeOpts  []png.Option
	SplitPlanes bool
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func (j convertJob) Run() error {
	inData, err := os.ReadFile(j.In)
	if err != nil {
		return oops.New(err, "failed to read %s", j.In)
	}

	start := time.Now()
	img, err := decodeImage(extOf(j.In), inData, j.DecodeOpts...)
	if err != nil {
		return oops.New(err, "failed to decode %s", j.In)
	}
	decoded := time.Since(start)

	start = time.Now()
	var out bytes.Buffer
	if err := encodeImage(&out, extOf(j.Out), img, j.saveOptions(), j.Texts); err != nil {
		return oops.New(err, "failed to encode %s", j.Out)
	}
	encoded := time.Since(start)

	if err := os.WriteFile(j.Out, out.Bytes(), 0o644); err != nil {
		return oops.New(err, "failed to write %s", j.Out)
	}

	inSize, outSize := int64(len(inData)), int64(out.Len())
	fmt.Printf("%s (%s) → %s (%s)\n", j.In, formatSize(inSize), j.Out, formatSize(outSize))
	fmt.Printf("ratio=%.3f, decode=%s, encode=%s\n", float64(outSize)/float64(inSize), decoded, encoded)
	logging.Debug().
		Str("in", j.In).
		Str("out", j.Out).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("converted image")

	if j.SplitPlanes {
		return j.writePlanes(img)
	}
	return nil
}

func (j convertJob) saveOptions() *png.SaveOptions {
	return &png.SaveOptions{
		AttemptCompression: j.Compress,
		Logger:             logging.GlobalLogger(),
	}
}

// decodeImage reads PNG with this module's decoder and everything else with
// the registered image decoders.
func decodeImage(ext string, data []byte, opts ...png.Option) (image.Image, error) {
	switch ext {
	case ".png":
		return png.OpenBytes(data, opts...)
	case ".qoi":
		return qoi.Decode(bytes.NewReader(data))
	case ".bmp":
		return bmp.Decode(bytes.NewReader(data))
	case ".tif", ".tiff":
		return tiff.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func encodeImage(w io.Writer, ext string, img image.Image, opts *png.SaveOptions, texts []textChunk) error {
	switch ext {
	case ".png":
		b, err := png.FromImage(img)
		if err != nil {
			return err
		}
		for _, t := range texts {
			b.StoreText(t.Keyword, t.Text)
		}
		return b.Save(w, opts)
	case ".qoi":
		return qoi.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unsupported output format %q", ext)
}

// writePlanes saves the luma and chroma planes of img next to the output
// file. Each plane has at most 256 levels so it is written indexed.
func (j convertJob) writePlanes(img image.Image) error {
	bounds := img.Bounds()
	planes := make([]*png.Builder, 3)
	for i := range planes {
		b, err := png.Create(bounds.Dx(), bounds.Dy(), false)
		if err != nil {
			return err
		}
		planes[i] = b
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			yc := color.YCbCrModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.YCbCr)
			planes[0].SetPixel(png.Gray(yc.Y), x, y)
			planes[1].SetPixel(png.Gray(yc.Cb), x, y)
			planes[2].SetPixel(png.Gray(yc.Cr), x, y)
		}
	}

	base := strings.TrimSuffix(j.Out, filepath.Ext(j.Out))
	var total int64
	var names []string
	for i, suffix := range []string{"_Y.png", "_Cb.png", "_Cr.png"} {
		path := base + suffix
		if err := planes[i].SaveFile(path, j.saveOptions()); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return oops.New(err, "failed to stat %s", path)
		}
		total += info.Size()
		names = append(names, path)
	}
	fmt.Printf("planes: %s (total %s)\n", strings.Join(names, ","), formatSize(total))
	return nil
}

func formatSize(size int64) string {
	if size < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

func parseTexts(pairs []string) ([]textChunk, error) {
	var out []textChunk
	for _, pair := range pairs {
		keyword, text, ok := strings.Cut(pair, "=")
		if !ok || keyword == "" {
			return nil, fmt.Errorf("text %q must look like keyword=text", pair)
		}
		out = append(out, textChunk{Keyword: keyword, Text: text})
	}
	return out, nil
}

// splitText extracts the keyword and text of an uncompressed tEXt or iTXt
// chunk.
func splitText(typ string, data []byte) (string, string, bool) {
	keyword, rest, ok := bytes.Cut(data, []byte{0})
	if !ok {
		return "", "", false
	}
	switch typ {
	case "tEXt":
		return string(keyword), string(rest), true
	case "iTXt":
		// compression flag, compression method, language tag, translated keyword
		if len(rest) < 2 || rest[0] != 0 {
			return "", "", false
		}
		rest = rest[2:]
		for i := 0; i < 2; i++ {
			_, after, found := bytes.Cut(rest, []byte{0})
			if !found {
				return "", "", false
			}
			rest = after
		}
		return string(keyword), string(rest), true
	}
	return "", "", false
}
