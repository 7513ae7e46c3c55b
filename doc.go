// Package boltpage renders Markdown, JSON, YAML, and plain-text documents
// into sanitized, syntax-highlighted HTML and keeps rendered output in sync
// with on-disk changes.
//
// # Quick Start
//
// Create a service, render a file, and close when done:
//
//	svc, err := boltpage.NewRenderService()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	html, err := svc.RenderFile(ctx, "README.md", "dark")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Rendered HTML carries chroma CSS classes rather than inline colors, so a
// theme swap only requires a new stylesheet:
//
//	css, err := svc.ThemeStylesheet("dark")
//
// # Rendering Pipeline
//
// Each render runs through these stages:
//
//  1. Document kind detection from the file extension
//  2. Parsing (Goldmark for Markdown, value-model round-trips for JSON/YAML)
//  3. Syntax highlighting of code via chroma, class-based
//  4. Sanitization (URL scheme rewriting, then an allow-list policy)
//
// Results are cached by a fingerprint of (path, size, mtime, theme); a file
// change invalidates every cached entry for that path.
//
// # Watching Files
//
// Many consumers can observe the same file through one OS-level watch. The
// service debounces change bursts and delivers a single notification per
// subscriber after the cache has been invalidated:
//
//	svc, err := boltpage.NewRenderService(
//	    boltpage.WithNotify(func(consumerID, path string) {
//	        // ask the consumer to re-render
//	    }),
//	)
//	err = svc.Subscribe("README.md", "window-1")
//	defer svc.Unsubscribe("window-1")
package boltpage
