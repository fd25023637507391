package defaultconv

import (
	"bytes"
	"html"
	"os"
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
)

// MarkdownToHTML renders a Markdown source file to HTML using goldmark,
// the built-in fallback for md->html when no graph path is configured.
func MarkdownToHTML(source, dest string) error {
	log.Debug().Str("source", source).Str("dest", dest).Msg("default converter: markdown to html")

	input, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(input, &buf); err != nil {
		return err
	}

	return os.WriteFile(dest, buf.Bytes(), 0o644)
}

// PlainTextToMarkdown wraps the input in a one-paragraph-per-sentence
// Markdown document, using uax29 sentence segmentation to decide paragraph
// breaks instead of a naive blank-line split, which fails on prose that was
// hard-wrapped at a fixed column.
func PlainTextToMarkdown(source, dest string) error {
	log.Debug().Str("source", source).Str("dest", dest).Msg("default converter: plaintext to markdown")

	input, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	var out strings.Builder
	segments := sentences.FromString(string(input))
	for segments.Next() {
		s := strings.TrimSpace(segments.Value())
		if s == "" {
			continue
		}
		out.WriteString(s)
		out.WriteString("\n\n")
	}

	return os.WriteFile(dest, []byte(out.String()), 0o644)
}

// PlainTextToHTML wraps the input in a minimal HTML document, escaping
// entities and treating blank lines as paragraph breaks.
func PlainTextToHTML(source, dest string) error {
	log.Debug().Str("source", source).Str("dest", dest).Msg("default converter: plaintext to html")

	input, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	var body strings.Builder
	for _, p := range strings.Split(string(input), "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		body.WriteString("<p>")
		body.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>\n"))
		body.WriteString("</p>\n")
	}

	doc := "<!DOCTYPE html>\n<html><head><meta charset=\"UTF-8\"></head><body>\n" +
		body.String() + "</body></html>\n"

	return os.WriteFile(dest, []byte(doc), 0o644)
}
