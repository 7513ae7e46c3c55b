package boltpage

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter converts raw code plus a language token into span markup
// carrying chroma CSS classes. Because the output is class-based rather
// than inline-colored, a theme swap only needs a new stylesheet; rendered
// content stays valid.
type Highlighter struct {
	reg *SyntaxRegistry
}

// NewHighlighter returns a Highlighter backed by the shared registry.
func NewHighlighter() *Highlighter {
	return &Highlighter{reg: Syntaxes()}
}

// Highlight returns class-annotated HTML for code, or ok=false when no
// grammar matches the token. Callers must fall back to unhighlighted
// rendering; a missing grammar is never a fatal error.
func (h *Highlighter) Highlight(code, languageToken string) (string, bool) {
	lexer := h.reg.Lexer(languageToken)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	// A style is required by the formatter even in class mode; it does not
	// appear in the markup.
	style := h.reg.Style("")
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	if err := h.reg.formatter.Format(&buf, style, it); err != nil {
		return "", false
	}
	return buf.String(), true
}

// ThemeStylesheet resolves a theme name to CSS text for the class-based
// markup Highlight emits. ok is false only when the style registry is
// completely empty, which callers treat as a configuration error.
func (h *Highlighter) ThemeStylesheet(theme string) (string, bool) {
	style := h.reg.Style(theme)
	if style == nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := h.reg.formatter.WriteCSS(&buf, style); err != nil {
		return "", false
	}
	return buf.String(), true
}
