package boltpage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Silverfell/BoltPage/internal/yamlutil"
)

// DocumentRenderer orchestrates parsing of one input document into final
// sanitized HTML. Markdown and plain text are infallible; JSON and YAML can
// fail with ErrInvalidInput because they must parse before pretty-printing.
//
// A DocumentRenderer is safe for concurrent use.
type DocumentRenderer struct {
	md          goldmark.Markdown
	highlighter *Highlighter
	sanitizer   *Sanitizer
}

// NewDocumentRenderer creates a renderer with GFM extensions and class-based
// code highlighting.
func NewDocumentRenderer() *DocumentRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithGuessLanguage(false),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(), // Self-closing tags
			// Raw HTML passes through here; the sanitizer is the gate.
			html.WithUnsafe(),
		),
	)
	return &DocumentRenderer{
		md:          md,
		highlighter: NewHighlighter(),
		sanitizer:   NewSanitizer(),
	}
}

// Render converts content of the given kind into sanitized HTML. The
// context is used for cancellation of CPU-bound parsing.
func (r *DocumentRenderer) Render(ctx context.Context, content string, kind DocumentKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch kind {
	case KindMarkdown:
		return r.renderMarkdown(ctx, content)
	case KindJSON:
		return r.renderJSON(content)
	case KindYAML:
		return r.renderYAML(content)
	default:
		return r.renderPlainText(content), nil
	}
}

// renderMarkdown converts Markdown to a sanitized HTML fragment. Supports
// context cancellation via goroutine + select pattern since Goldmark doesn't
// natively support context.
func (r *DocumentRenderer) renderMarkdown(ctx context.Context, content string) (string, error) {
	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(preprocessMarkdown(content)), &buf); err != nil {
			done <- result{err: err}
			return
		}
		body := `<div class="markdown-body">` + "\n" + buf.String() + "</div>"
		done <- result{html: r.sanitizer.Sanitize(body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}

// renderJSON pretty-prints with deterministic indentation and key order,
// then highlights the result as a single JSON code block.
func (r *DocumentRenderer) renderJSON(content string) (string, error) {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return r.renderCodeDocument(string(pretty), "json"), nil
}

// renderYAML round-trips through a value model; comments and original
// formatting are not preserved.
func (r *DocumentRenderer) renderYAML(content string) (string, error) {
	// An empty stream is the null document, not a parse failure.
	var value any
	if strings.TrimSpace(content) != "" {
		if err := yamlutil.Unmarshal([]byte(content), &value); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	pretty, err := yamlutil.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return r.renderCodeDocument(string(pretty), "yaml"), nil
}

// renderPlainText escapes the content verbatim inside a fixed container.
func (r *DocumentRenderer) renderPlainText(content string) string {
	out := `<div class="markdown-body"><pre class="plain-text">` +
		escapeHTML(content) + "</pre></div>"
	return r.sanitizer.Sanitize(out)
}

// renderCodeDocument highlights an entire document as one code block. When
// the grammar is missing, the text is re-emitted as a plain escaped block
// rather than failing the render.
func (r *DocumentRenderer) renderCodeDocument(text, lang string) string {
	block, ok := r.highlighter.Highlight(text, lang)
	if !ok {
		block = `<pre><code class="language-` + lang + `">` +
			escapeHTML(text) + "</code></pre>"
	}
	out := `<div class="markdown-body"><div class="highlight">` + block + "</div></div>"
	return r.sanitizer.Sanitize(out)
}

// FormatJSON pretty-prints JSON content with two-space indentation and
// sorted keys. Fails with ErrInvalidInput on malformed input.
func FormatJSON(content string) (string, error) {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return string(pretty), nil
}

// escapeHTML escapes the characters that matter in an HTML context.
func escapeHTML(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, ch := range input {
		switch ch {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#039;")
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
