package boltpage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sync/singleflight"
)

// fileSystem abstracts the filesystem calls the service makes, so tests can
// instrument stat and read counts.
type fileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
}

// osFS is the default filesystem.
type osFS struct{}

func (osFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }
func (osFS) ReadFile(path string) ([]byte, error)  { return os.ReadFile(path) }

// RenderService is the façade consumed by the UI layer. It is the only
// component that touches both the render cache and the filesystem: a render
// request computes a fresh fingerprint, consults the cache, and renders on a
// miss; the watch multiplexer invalidates the cache and raises change events
// behind its back.
type RenderService struct {
	cfg      serviceConfig
	fsys     fileSystem
	cache    *RenderCache
	renderer *DocumentRenderer
	mux      *WatchMultiplexer

	// group collapses concurrent duplicate misses for one fingerprint so
	// at most one render computation runs; last write still wins on the
	// cache and callers always receive complete HTML.
	group singleflight.Group
}

// NewRenderService creates a service with default configuration. Use
// options to customize behavior (WithNotify, WithDebounce, ...).
func NewRenderService(opts ...Option) (*RenderService, error) {
	cfg := serviceConfig{
		capacity: DefaultCacheCapacity,
		debounce: DefaultDebounce,
		fsys:     osFS{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	s := &RenderService{
		cfg:      cfg,
		fsys:     cfg.fsys,
		cache:    NewRenderCache(cfg.capacity),
		renderer: NewDocumentRenderer(),
	}

	// The watcher factory is injectable by tests; default is fsnotify.
	newWatcher := cfg.newWatcher
	if newWatcher == nil {
		newWatcher = newOSWatcher
	}
	fw, err := newWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}
	s.mux = newWatchMultiplexer(fw, s.cache, cfg.notify, cfg.debounce, cfg.logger)
	return s, nil
}

// RenderFile renders the document at path for the given theme. It computes
// a fresh fingerprint from current file metadata, returns cached HTML on a
// hit, and otherwise reads, renders, caches, and returns.
func (s *RenderService) RenderFile(ctx context.Context, path, theme string) (string, error) {
	info, err := s.fsys.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	fp := fingerprintFor(path, theme, info)

	if html, ok := s.cache.Get(fp); ok {
		return html, nil
	}

	// The flight key is the full fingerprint, not just (path, theme): a
	// request issued after the file changed must not join an in-flight
	// computation that read the pre-change content.
	key := fmt.Sprintf("%s\x00%d\x00%d\x00%s", fp.Path, fp.Size, fp.ModTime, fp.Theme)
	v, err, _ := s.group.Do(key, func() (any, error) {
		data, err := s.fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		html, err := s.renderer.Render(ctx, string(data), KindForPath(path))
		if err != nil {
			return nil, err
		}
		s.cache.Put(fp, html)
		return html, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ThemeStylesheet resolves a theme name to CSS for the class-based
// highlighting markup. ErrNoThemes signals an empty style registry.
func (s *RenderService) ThemeStylesheet(theme string) (string, error) {
	css, ok := s.renderer.highlighter.ThemeStylesheet(theme)
	if !ok {
		return "", ErrNoThemes
	}
	return css, nil
}

// Subscribe registers consumerID for fileChanged notifications on path.
// Idempotent if already subscribed to the same path.
func (s *RenderService) Subscribe(path, consumerID string) error {
	return s.mux.Subscribe(path, consumerID)
}

// Unsubscribe stops notifications for consumerID. Idempotent if not
// subscribed.
func (s *RenderService) Unsubscribe(consumerID string) error {
	return s.mux.Unsubscribe(consumerID)
}

// Cache exposes the render cache (e.g., for metrics or tests).
func (s *RenderService) Cache() *RenderCache {
	return s.cache
}

// Close releases the OS watcher and stops background work. The in-memory
// cache and watch tables are process-lifetime only; nothing is persisted.
func (s *RenderService) Close() error {
	return s.mux.Close()
}
