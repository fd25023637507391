// Package defaultconv holds the built-in, native-Go default converter
// scripts: library-backed shortcuts for a handful of common (from, to)
// pairs, tried before the engine falls through to the fully generic,
// config-driven default converter script (engine.Engine.DefaultCommand,
// grounded on scripts/convertDefault.py in the original). Both are reached
// only when the graph has no configured path and try_default is set; this
// package covers the pairs worth a native, dependency-backed implementation
// rather than a shelled-out script, the rest fall through to the generic
// template.
package defaultconv

import "fmt"

// scriptFunc is the signature every default converter script shares:
// parameterized only by source and dest, per spec.
type scriptFunc func(source, dest string) error

var scripts = map[[2]string]scriptFunc{
	{"pdf", "txt"}:  PDFToText,
	{"md", "html"}:  MarkdownToHTML,
	{"txt", "md"}:   PlainTextToMarkdown,
	{"txt", "html"}: PlainTextToHTML,
}

// Run executes the built-in native default converter script for (from, to)
// if one is registered, and reports whether one existed. A false, nil
// result means no native script covers this pair; the caller should fall
// through to the generic default converter command instead.
func Run(from, to, source, dest string) (bool, error) {
	script, ok := scripts[[2]string{from, to}]
	if !ok {
		return false, nil
	}
	if err := script(source, dest); err != nil {
		return true, fmt.Errorf("default converter %s->%s: %w", from, to, err)
	}
	return true, nil
}

// Has reports whether a native default converter script is registered for
// (from, to). It does not reflect the generic default converter command,
// which applies to every pair once configured.
func Has(from, to string) bool {
	_, ok := scripts[[2]string{from, to}]
	return ok
}
