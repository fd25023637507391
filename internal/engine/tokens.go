package engine

import (
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
)

// stepContext carries the values substituted into a converter's command
// template for one step of a conversion path (spec's CONVERTER TOKEN SET).
type stepContext struct {
	input      string // $$i: absolute path to the input file for this step
	output     string // $$o: absolute path to the output file for this step
	origin     string // $$r: path to the original document, pre-temp-dir
	encoding   string // $$e: input file's encoding
	supportDir string // $$s: path to the system support/share directory
	latexName  string // $$l: filename to be used by downstream LaTeX tools
	from       string // $$f: source format name (default converter script only)
	to         string // $$t: target format name (default converter script only)
}

// substituteTokens expands the command template's $$-tokens, shell-quoting
// each path-valued substitution so paths with spaces or shell
// metacharacters survive the later shlex split; the $$f/$$t format names
// are inserted unquoted. An unresolvable token is left as an empty
// substitution rather than fabricated.
func substituteTokens(template string, ctx stepContext) string {
	basename := strings.TrimSuffix(filepath.Base(ctx.input), filepath.Ext(ctx.input))
	inputDir := filepath.Dir(ctx.input)

	replacer := strings.NewReplacer(
		"$$i", shellquote.Join(ctx.input),
		"$$o", shellquote.Join(ctx.output),
		"$$b", shellquote.Join(basename),
		"$$p", shellquote.Join(inputDir),
		"$$r", shellquote.Join(ctx.origin),
		"$$e", shellquote.Join(ctx.encoding),
		"$$s", shellquote.Join(ctx.supportDir),
		"$$l", shellquote.Join(ctx.latexName),
		"$$f", ctx.from,
		"$$t", ctx.to,
	)
	return replacer.Replace(template)
}
