package boltpage

import (
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var (
	registryOnce sync.Once
	registry     *SyntaxRegistry
)

// SyntaxRegistry is a process-wide, read-only view over the known language
// grammars and color themes. It is built once before first use and is safe
// to share across all concurrent renders; there is no runtime mutation.
type SyntaxRegistry struct {
	formatter *chromahtml.Formatter
}

// Syntaxes returns the shared registry, building it on first call.
func Syntaxes() *SyntaxRegistry {
	registryOnce.Do(func() {
		registry = &SyntaxRegistry{
			formatter: chromahtml.New(chromahtml.WithClasses(true)),
		}
	})
	return registry
}

// Lexer returns the grammar for a language token. Lookup accepts canonical
// names and common aliases, case-insensitively ("json" and "JSON" both
// match). Returns nil when no grammar is known for the token.
func (r *SyntaxRegistry) Lexer(token string) chroma.Lexer {
	if token == "" {
		return nil
	}
	return lexers.Get(token)
}

// Style resolves a theme name to a concrete palette. The name itself is
// tried first so explicit chroma style names work; otherwise an ordered
// fallback list is used, dark-leaning names for dark themes and light ones
// for everything else. Returns nil only if the style registry is empty.
func (r *SyntaxRegistry) Style(theme string) *chroma.Style {
	var candidates []string
	switch strings.ToLower(theme) {
	case "dark", "drac", "dracula":
		candidates = []string{theme, "github-dark", "monokai", "dracula"}
	default:
		candidates = []string{theme, "github", "monokailight", "solarized-light"}
	}
	for _, name := range candidates {
		if s := lookupStyle(name); s != nil {
			return s
		}
	}
	if names := styles.Names(); len(names) > 0 {
		return styles.Get(names[0])
	}
	return nil
}

// lookupStyle returns the named style, or nil if the registry does not have
// it. styles.Get reports misses by handing back the fallback style.
func lookupStyle(name string) *chroma.Style {
	s := styles.Get(name)
	if s == nil || s == styles.Fallback {
		return nil
	}
	return s
}
