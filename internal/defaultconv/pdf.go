// Package defaultconv implements the engine's "default converter script"
// fallback (spec step 4.E.3): a handful of native-Go conversions used when
// no path through the converter graph exists and try_default is set.
// Unlike graph converters, these do not run external processes.
package defaultconv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// PDFToText extracts the text content of every page of a PDF and
// concatenates it into dest, separated by page breaks.
func PDFToText(source, dest string) error {
	log.Debug().Str("source", source).Str("dest", dest).Msg("default converter: pdf to text")

	tmpDir, err := os.MkdirTemp("", "lyxconv-pdftotext-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(source, tmpDir, nil, conf); err != nil {
		return fmt.Errorf("extracting pdf content: %w", err)
	}

	return combinePages(tmpDir, dest)
}

func combinePages(dir, dest string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no page content extracted")
	}
	sort.Strings(files)

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	for i, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading page %s: %w", f, err)
		}
		if _, err := out.Write(content); err != nil {
			return err
		}
		if i < len(files)-1 {
			if _, err := io.WriteString(out, "\n\n\x0c\n\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
