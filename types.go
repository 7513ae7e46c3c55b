package boltpage

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind identifies how a file's content is parsed and rendered.
type DocumentKind int

const (
	// KindPlainText is HTML-escaped verbatim; no parsing, no highlighting.
	KindPlainText DocumentKind = iota
	// KindMarkdown is parsed as GitHub-flavored Markdown.
	KindMarkdown
	// KindJSON is parsed, pretty-printed, and highlighted as one code block.
	KindJSON
	// KindYAML is parsed, re-serialized, and highlighted as one code block.
	KindYAML
)

// String returns the kind's lowercase name.
func (k DocumentKind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindJSON:
		return "json"
	case KindYAML:
		return "yaml"
	default:
		return "text"
	}
}

// KindForPath derives the document kind from the file extension. Unknown
// extensions (and none at all) render as plain text.
func KindForPath(path string) DocumentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown
	case ".json":
		return KindJSON
	case ".yaml", ".yml":
		return KindYAML
	default:
		return KindPlainText
	}
}

// Fingerprint is the cache identity of one rendered document. It combines
// file path, size, modification time, and the active theme; it never mutates
// after creation. Staleness is detected by computing a fresh fingerprint
// from current file metadata and comparing.
type Fingerprint struct {
	Path    string
	Size    uint64
	ModTime uint64 // seconds since the Unix epoch
	Theme   string
}

// fingerprintFor builds a Fingerprint from stat metadata.
func fingerprintFor(path, theme string, info fs.FileInfo) Fingerprint {
	return Fingerprint{
		Path:    path,
		Size:    uint64(info.Size()),
		ModTime: uint64(info.ModTime().Unix()),
		Theme:   theme,
	}
}

// Default configuration values. Both are tunable via options; the defaults
// match the original viewer deployment.
const (
	DefaultCacheCapacity = 50
	DefaultDebounce      = 250 * time.Millisecond
)

// Option configures a RenderService.
type Option func(*serviceConfig)

// serviceConfig holds internal configuration for RenderService.
type serviceConfig struct {
	capacity   int
	debounce   time.Duration
	fsys       fileSystem
	notify     NotifyFunc
	logger     *slog.Logger
	newWatcher func() (fsWatcher, error)
}

// WithCacheCapacity sets the render cache capacity.
// Panics if n <= 0 (programmer error, similar to time.NewTicker).
func WithCacheCapacity(n int) Option {
	if n <= 0 {
		panic("boltpage: WithCacheCapacity must be positive")
	}
	return func(c *serviceConfig) {
		c.capacity = n
	}
}

// WithDebounce sets the window during which bursts of raw file-change
// signals collapse into a single notification.
// Panics if d <= 0.
func WithDebounce(d time.Duration) Option {
	if d <= 0 {
		panic("boltpage: WithDebounce duration must be positive")
	}
	return func(c *serviceConfig) {
		c.debounce = d
	}
}

// WithNotify sets the callback that delivers fileChanged events to the UI
// host, one call per eligible subscriber after debounce and cache
// invalidation.
func WithNotify(fn NotifyFunc) Option {
	return func(c *serviceConfig) {
		c.notify = fn
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = l
	}
}

// WithFileSystem replaces filesystem access (e.g., by tests).
func WithFileSystem(fsys fileSystem) Option {
	return func(c *serviceConfig) {
		c.fsys = fsys
	}
}
