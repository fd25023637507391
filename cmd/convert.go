package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cburschka/lyx-sub006/internal/core"
)

var (
	inputFormat  string
	outputFormat string
	tryDefault   bool
	noCache      bool
	timeout      int
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a document from one format to another",
	Long: `Convert walks the shortest chain of configured converters from the
input format to the output format, writing intermediate results to a
scratch directory and the final result to <output>.

Examples:
  # Auto-detect formats from file extensions
  lyxconv convert paper.eps paper.pdf

  # Explicitly specify formats
  lyxconv convert notes.txt notes.html --from txt --to html`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&inputFormat, "from", "f", "", "input format (auto-detected from extension if not specified)")
	convertCmd.Flags().StringVarP(&outputFormat, "to", "t", "", "output format (auto-detected from extension if not specified)")
	convertCmd.Flags().BoolVar(&tryDefault, "try-default", true, "fall back to a built-in converter when no configured path exists")
	convertCmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the conversion cache for this run")
	convertCmd.Flags().IntVar(&timeout, "timeout", 300, "conversion timeout in seconds")
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := args[1]

	from := inputFormat
	to := outputFormat
	if from == "" {
		from = strings.TrimPrefix(filepath.Ext(input), ".")
	}
	if to == "" {
		to = strings.TrimPrefix(filepath.Ext(output), ".")
	}
	if from == "" || to == "" {
		return fmt.Errorf("cannot detect format from extension, specify --from/--to")
	}
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	e, err := loadEngine()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	defer os.RemoveAll(e.TempDir)

	log.Info().Str("input", input).Str("output", output).Str("from", from).Str("to", to).Msg("starting conversion")

	flags := core.ConversionFlags{TryDefault: tryDefault, TryCache: !noCache}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	start := time.Now()
	err = e.Convert(ctx, input, output, input, from, to, flags)
	duration := time.Since(start)

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("conversion failed")
		var npErr *core.NoPathError
		if errors.As(err, &npErr) {
			return fmt.Errorf("no conversion path from %s to %s", from, to)
		}
		if errors.Is(err, core.ErrSourceMissing) {
			return fmt.Errorf("input file does not exist: %s", input)
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	stat, _ := os.Stat(output)
	var size int64
	if stat != nil {
		size = stat.Size()
	}

	log.Info().Str("output", output).Int64("size", size).Dur("duration", duration).Msg("conversion completed")
	fmt.Printf("converted %s -> %s (%d bytes) in %v\n", input, output, size, duration.Round(time.Millisecond))
	return nil
}
