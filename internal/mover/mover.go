// Package mover implements the per-format file copy/rename policy: a plain
// byte copy by default, or a specialized external command for formats whose
// files embed path references that must be rewritten when moved.
package mover

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/cburschka/lyx-sub006/internal/core"
)

// Mover copies or renames a file of one format, optionally rewriting
// references inside it via a command template.
type Mover interface {
	Copy(ctx context.Context, from, to, latexName string) error
	Rename(ctx context.Context, from, to, latexName string) error
}

// defaultMover performs a plain byte copy; latexName is ignored.
type defaultMover struct {
	fs afero.Fs
}

func (m defaultMover) Copy(_ context.Context, from, to, _ string) error {
	return afCopy(m.fs, from, to)
}

func (m defaultMover) Rename(ctx context.Context, from, to, latexName string) error {
	// Rename is copy-then-delete, even when no rewrite is needed, so that
	// failure modes stay uniform between the default and specialised movers.
	if err := m.Copy(ctx, from, to, latexName); err != nil {
		return err
	}
	if err := m.fs.Remove(from); err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}
	return nil
}

func afCopy(fs afero.Fs, from, to string) error {
	src, err := fs.Open(from)
	if err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}

	dst, err := fs.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}
	return nil
}

// specialisedMover runs an external command template of the form
// "python $$s/scripts/fig_copy.py $$i $$o $$l" to copy a file, substituting
// the four tokens before execution.
type specialisedMover struct {
	fs         afero.Fs
	command    string
	supportDir string
}

func (m specialisedMover) Copy(ctx context.Context, from, to, latexName string) error {
	return m.run(ctx, from, to, latexName)
}

func (m specialisedMover) Rename(ctx context.Context, from, to, latexName string) error {
	if err := m.run(ctx, from, to, latexName); err != nil {
		return err
	}
	if err := m.fs.Remove(from); err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: err}
	}
	return nil
}

func (m specialisedMover) run(ctx context.Context, from, to, latexName string) error {
	cmdStr := substituteTokens(m.command, from, to, latexName, m.supportDir)

	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: fmt.Errorf("parsing mover command: %w", err)}
	}
	if len(parts) == 0 {
		return &core.MoverError{Src: from, Dst: to, Err: fmt.Errorf("empty mover command")}
	}

	log.Debug().Str("from", from).Str("to", to).Str("command", cmdStr).Msg("running specialised mover")

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &core.MoverError{Src: from, Dst: to, Err: fmt.Errorf("%w: %s", err, out)}
	}
	return nil
}

func substituteTokens(template, from, to, latexName, supportDir string) string {
	replacer := strings.NewReplacer(
		"$$i", shellquote.Join(from),
		"$$o", shellquote.Join(to),
		"$$l", shellquote.Join(latexName),
		"$$s", shellquote.Join(supportDir),
	)
	return replacer.Replace(template)
}

// Registry manages the store of Movers, one default plus any number of
// specialised-per-format overrides.
type Registry struct {
	fs         afero.Fs
	supportDir string
	specials   map[string]string // format -> command template
}

// New returns a Registry backed by fs, using supportDir as the system
// support directory substituted for $$s.
func New(fs afero.Fs, supportDir string) *Registry {
	return &Registry{fs: fs, supportDir: supportDir, specials: make(map[string]string)}
}

// Set registers a specialised command to be used to copy files of the given
// format.
func (r *Registry) Set(format, command string) {
	r.specials[format] = command
}

// Get returns the Mover registered for format, or the default byte-copy
// mover if none was registered.
func (r *Registry) Get(format string) Mover {
	if cmd, ok := r.specials[format]; ok {
		return specialisedMover{fs: r.fs, command: cmd, supportDir: r.supportDir}
	}
	return defaultMover{fs: r.fs}
}

// Command returns the specialised command template for format, or "" if
// format uses the default mover.
func (r *Registry) Command(format string) string {
	return r.specials[format]
}
