// Package engine implements the conversion engine: the orchestrator that
// walks a path through the converter graph, substitutes tokens in command
// templates, runs each tool with a scoped temp directory, moves/copies
// sibling files, and reports per-step failure (spec §4.E).
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/shlex"
	"github.com/rs/zerolog/log"

	"github.com/cburschka/lyx-sub006/internal/cache"
	"github.com/cburschka/lyx-sub006/internal/converter"
	"github.com/cburschka/lyx-sub006/internal/core"
	"github.com/cburschka/lyx-sub006/internal/defaultconv"
	"github.com/cburschka/lyx-sub006/internal/format"
	"github.com/cburschka/lyx-sub006/internal/mover"
)

// LatexRunner is the external collaborator the LaTeX sub-protocol hands off
// to. The layout/typesetting subsystem itself is out of scope; the engine
// only needs this narrow seam.
type LatexRunner interface {
	// Run executes a LaTeX-family command in dir and returns the parsed
	// error list, if parselogCmd is non-empty, translated through it first.
	Run(ctx context.Context, command, dir, parselogCmd string) (errorLog string, ok bool)
}

// Engine ties the format/mover/converter registries and the cache together
// into the top-level Convert operation.
type Engine struct {
	Formats    *format.Registry
	Converters *converter.Registry
	Movers     *mover.Registry
	Cache      *cache.Cache
	SupportDir string
	TempDir    string // process-scoped, created at startup, reaped at shutdown
	Latex      LatexRunner

	// AuxPersists records whether auxiliary files produced by a needs_aux
	// step are kept available to later steps in the same Convert call; it
	// defaults to true. Convert does not read it: no step removes files from
	// TempDir, so auxiliary files stay available whatever its value.
	AuxPersists bool

	// DefaultCommand is the generic default-converter script template (spec's
	// "default converter script", grounded in the original's
	// scripts/convertDefault.py invocation): run when try_default is set, no
	// graph path exists, and no internal/defaultconv native fallback claims
	// the pair. Empty disables it.
	DefaultCommand string
}

// New returns an Engine. tempDir must already exist and be owned by this
// process; callers are responsible for removing it at shutdown.
func New(formats *format.Registry, converters *converter.Registry, movers *mover.Registry, c *cache.Cache, supportDir, tempDir string) *Engine {
	return &Engine{
		Formats:     formats,
		Converters:  converters,
		Movers:      movers,
		Cache:       c,
		SupportDir:  supportDir,
		TempDir:     tempDir,
		AuxPersists: true,
	}
}

// Convert is the engine's public operation (spec §4.E).
func (e *Engine) Convert(ctx context.Context, source, dest, origin, from, to string, flags core.ConversionFlags) error {
	if _, ok := e.Formats.Get(from); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownFormat, from)
	}
	if _, ok := e.Formats.Get(to); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownFormat, to)
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("%w: %s", core.ErrSourceMissing, source)
	}

	// Step 1: cache lookup. Skipped for directory sources, where the
	// mtime-based freshness check doesn't apply.
	isDir := isDirectory(source)
	if flags.TryCache && !isDir && e.Cache.InCache(origin, to) {
		if err := e.Cache.Copy(origin, to, dest); err == nil {
			log.Debug().Str("origin", origin).Str("to", to).Msg("conversion served from cache")
			return nil
		}
		log.Warn().Str("origin", origin).Str("to", to).Msg("cache hit but copy failed, reconverting")
	}

	// Step 2: fast path for identical endpoints.
	if from == to {
		return e.noopOrCopy(ctx, source, dest, to)
	}

	// Step 3: path computation.
	path := e.Converters.ShortestPath(from, to)
	if len(path) == 0 {
		if flags.TryDefault {
			if ran, err := defaultconv.Run(from, to, source, dest); ran {
				if err != nil {
					return err
				}
				return e.storeInCache(origin, to, dest, flags)
			}
			if ran, err := e.runDefaultScript(ctx, from, to, source, dest); ran {
				if err != nil {
					return err
				}
				return e.storeInCache(origin, to, dest, flags)
			}
		}
		return &core.NoPathError{From: from, To: to}
	}

	// Step 4: walk the path.
	outfile, err := e.walkPath(ctx, path, source, origin, from, to)
	if err != nil {
		return err
	}

	// Step 5: emplacement.
	if err := e.emplace(ctx, outfile, dest, to); err != nil {
		return err
	}

	// Step 6: cache store.
	return e.storeInCache(origin, to, dest, flags)
}

func (e *Engine) storeInCache(origin, to, dest string, flags core.ConversionFlags) error {
	if !flags.TryCache {
		return nil
	}
	return e.Cache.Add(origin, to, dest)
}

func (e *Engine) noopOrCopy(ctx context.Context, source, dest, format string) error {
	srcAbs, err1 := filepath.Abs(source)
	dstAbs, err2 := filepath.Abs(dest)
	if err1 == nil && err2 == nil && srcAbs == dstAbs {
		return nil
	}
	if source == dest {
		return nil
	}
	m := e.Movers.Get(format)
	if err := m.Copy(ctx, source, dest, filepath.Base(dest)); err != nil {
		return err
	}
	return nil
}

func (e *Engine) emplace(ctx context.Context, outfile, dest, toFormat string) error {
	outAbs, err1 := filepath.Abs(outfile)
	dstAbs, err2 := filepath.Abs(dest)
	if err1 == nil && err2 == nil && outAbs == dstAbs {
		return nil
	}
	m := e.Movers.Get(toFormat)
	if err := m.Copy(ctx, outfile, dest, filepath.Base(dest)); err != nil {
		return err
	}
	return nil
}

// walkPath executes each edge along path in order, returning the final
// step's output file.
func (e *Engine) walkPath(ctx context.Context, path []int, source, origin, fromFormat, toFormat string) (string, error) {
	currentInput := source

	for i, edgeID := range path {
		c, ok := e.Converters.ConverterForEdge(edgeID)
		if !ok {
			return "", fmt.Errorf("%w: edge %d has no matching converter", core.ErrConverterFailed, edgeID)
		}

		outfile := e.stepOutputPath(filepath.Base(source), c.To, i)

		ctxVals := stepContext{
			input:      currentInput,
			output:     outfile,
			origin:     origin,
			supportDir: e.SupportDir,
			latexName:  filepath.Base(outfile),
			from:       c.From,
			to:         c.To,
		}

		if err := e.runStep(ctx, c, ctxVals); err != nil {
			return "", err
		}

		if c.Derived.ResultDir != "" {
			resolved, err := e.adoptResultDir(currentInput, c.Derived.ResultDir, c.Derived.ResultFile)
			if err != nil {
				return "", err
			}
			outfile = resolved
		}

		if c.Derived.IsLatex && e.Latex != nil {
			errLog, ok := e.Latex.Run(ctx, c.Command, filepath.Dir(outfile), c.Derived.ParselogCmd)
			if !ok {
				return "", &core.ConverterError{From: c.From, To: c.To, ExitCode: 1, Log: errLog}
			}
		}

		currentInput = outfile
	}
	return currentInput, nil
}

func (e *Engine) stepOutputPath(baseName, toFormat string, step int) string {
	base := baseName
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	f, _ := e.Formats.Get(toFormat)
	ext := f.PrimaryExtension()
	if ext == "" {
		ext = toFormat
	}
	return filepath.Join(e.TempDir, fmt.Sprintf("%s-%d.%s", base, step, ext))
}

// runStep substitutes tokens, splits the resulting command into argv, and
// runs it as a blocking child process. An empty template is treated as "no
// command": the engine still needs ctxVals.output to exist for the next
// step, so it falls back to a byte-identical copy of the input.
func (e *Engine) runStep(ctx context.Context, c converter.Converter, ctxVals stepContext) error {
	if c.Command == "" {
		return copyFile(ctxVals.input, ctxVals.output)
	}

	cmdStr := substituteTokens(c.Command, ctxVals)

	if format.IsZippedFormat(sniffedFormat(ctxVals.input)) && !c.Derived.NoUnzip {
		// The engine does not decompress zipped sources: with or without
		// noUnzip, the compressed file is passed to the converter as-is.
		log.Debug().Str("input", ctxVals.input).Msg("zipped source passed through to converter")
	}

	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return fmt.Errorf("%w: parsing command: %v", core.ErrConverterFailed, err)
	}
	if len(parts) == 0 {
		return copyFile(ctxVals.input, ctxVals.output)
	}

	log.Info().Str("from", c.From).Str("to", c.To).Str("command", cmdStr).Msg("running converter step")

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &core.ConverterError{From: c.From, To: c.To, ExitCode: exitCode, Log: string(out)}
	}
	return nil
}

// runDefaultScript runs the generic default converter script (DefaultCommand)
// for a (from, to) pair the native internal/defaultconv fallbacks don't
// cover. It reports ran=false without error when no script is configured, so
// callers can tell "not configured" apart from "configured but failed".
func (e *Engine) runDefaultScript(ctx context.Context, from, to, source, dest string) (bool, error) {
	if e.DefaultCommand == "" {
		return false, nil
	}

	ctxVals := stepContext{
		input:      source,
		output:     dest,
		origin:     source,
		supportDir: e.SupportDir,
		from:       from,
		to:         to,
	}
	cmdStr := substituteTokens(e.DefaultCommand, ctxVals)

	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return true, fmt.Errorf("%w: parsing default converter command: %v", core.ErrConverterFailed, err)
	}
	if len(parts) == 0 {
		return true, fmt.Errorf("%w: empty default converter command", core.ErrConverterFailed)
	}

	log.Info().Str("from", from).Str("to", to).Str("command", cmdStr).Msg("running default converter script")

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return true, &core.ConverterError{From: from, To: to, ExitCode: exitCode, Log: string(out)}
	}
	return true, nil
}

// adoptResultDir locates the result directory a converter produces (named
// by the input's basename plus the configured pattern) and resolves the
// result file pattern inside it via doublestar glob matching.
func (e *Engine) adoptResultDir(input, dirPattern, filePattern string) (string, error) {
	base := filepath.Base(input)
	base = base[:len(base)-len(filepath.Ext(base))]
	dir := filepath.Join(filepath.Dir(input), base+dirPattern)

	if filePattern == "" {
		return dir, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), filePattern)
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("%w: result file pattern %q not found in %s", core.ErrConverterFailed, filePattern, dir)
	}
	return filepath.Join(dir, matches[0]), nil
}

func sniffedFormat(path string) string {
	return format.Sniff(path)
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
