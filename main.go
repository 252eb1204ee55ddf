package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/svanichkin/gustave/internal/logging"
	"github.com/svanichkin/gustave/png"
)

var (
	logLevel  string
	lenient   bool
	maxPixels int64
)

var rootCommand = &cobra.Command{
	Use:   "gustave",
	Short: "Inspect and convert PNG images",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.SetLevel(logLevel)
	},
	SilenceUsage: true,
}

func init() {
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCommand.PersistentFlags().BoolVar(&lenient, "lenient", false, "Log checksum mismatches instead of failing")
	rootCommand.PersistentFlags().Int64Var(&maxPixels, "max-pixels", 0, "Refuse to decode images with more pixels than this (0 for no limit)")

	infoCommand := &cobra.Command{
		Use:   "info <file.png>",
		Short: "Print the header, palette and ancillary chunks of a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printInfo(args[0])
		},
	}
	rootCommand.AddCommand(infoCommand)

	pixelCommand := &cobra.Command{
		Use:   "pixel <file.png> <x> <y>",
		Short: "Print the colour of one pixel",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("x must be an integer: %w", err)
			}
			y, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("y must be an integer: %w", err)
			}
			img, err := png.OpenFile(args[0], decodeOptions()...)
			if err != nil {
				return err
			}
			p, err := img.Pixel(x, y)
			if err != nil {
				return err
			}
			fmt.Printf("%s grayscale=%v\n", p, p.IsGrayscale)
			return nil
		},
	}
	rootCommand.AddCommand(pixelCommand)

	var (
		compress bool
		split    bool
		texts    []string
	)
	convertCommand := &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert between PNG, QOI, BMP and TIFF",
		Long: "Convert an image between formats, chosen by file extension. The output defaults to the " +
			"input name with a .png extension. GIF and JPEG are accepted as input.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath := args[0]
			outPath := strings.TrimSuffix(inPath, extOf(inPath)) + ".png"
			if len(args) == 2 {
				outPath = args[1]
			}
			if outPath == inPath {
				return fmt.Errorf("output would overwrite %s", inPath)
			}
			parsedTexts, err := parseTexts(texts)
			if err != nil {
				return err
			}
			job := convertJob{
				In:          inPath,
				Out:         outPath,
				Compress:    compress,
				Texts:       parsedTexts,
				DecodeOpts:  decodeOptions(),
				SplitPlanes: split,
			}
			return job.Run()
		},
	}
	convertCommand.Flags().BoolVar(&compress, "compress", false, "Spend more time to write smaller PNG files")
	convertCommand.Flags().BoolVar(&split, "split", false, "Also write the Y, Cb and Cr planes as grayscale PNGs")
	convertCommand.Flags().StringArrayVar(&texts, "text", nil, "Add a keyword=text iTXt chunk to PNG output (repeatable)")
	rootCommand.AddCommand(convertCommand)
}

func decodeOptions() []png.Option {
	opts := []png.Option{png.WithLogger(logging.GlobalLogger())}
	if lenient {
		opts = append(opts, png.WithLenientChecksums())
	}
	if maxPixels > 0 {
		opts = append(opts, png.WithMaxPixels(maxPixels))
	}
	return opts
}

func printInfo(path string) error {
	var chunks []string
	visitor := png.ChunkVisitorFunc(func(_ png.Header, chunk png.ChunkHeader, data []byte, _ uint32) {
		line := chunk.String()
		if keyword, text, ok := splitText(chunk.Type, data); ok {
			line += fmt.Sprintf(" %s=%q", keyword, text)
		}
		chunks = append(chunks, line)
	})
	img, err := png.OpenFile(path, append(decodeOptions(), png.WithChunkVisitor(visitor))...)
	if err != nil {
		return err
	}

	fmt.Println(img.Header())
	if pal := img.Palette(); pal != nil {
		fmt.Printf("palette: %d entries\n", len(pal))
	}
	for _, c := range chunks {
		fmt.Println(c)
	}
	return nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		logging.Error().Err(err).Msg("gustave failed")
		os.Exit(1)
	}
}
