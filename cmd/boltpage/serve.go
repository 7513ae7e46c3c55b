package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	boltpage "github.com/Silverfell/BoltPage"
	"github.com/Silverfell/BoltPage/internal/config"
)

var errUsage = errors.New("usage: boltpage [flags] <file>")

// version is set via ldflags.
var version = "dev"

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>BoltPage - {{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
{{.Body}}
<script>
new EventSource("/events").onmessage = function () { location.reload(); };
</script>
</body>
</html>`

var page = template.Must(template.New("page").Parse(pageTemplate))

type pageData struct {
	Title string
	CSS   template.CSS
	Body  template.HTML
}

// run parses arguments, builds the render service, and serves the preview
// until interrupted.
func run(args []string) error {
	flags := pflag.NewFlagSet("boltpage", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a boltpage.yaml preferences file")
	listen := flags.String("listen", "", "listen address (overrides config)")
	theme := flags.String("theme", "", "color theme: light, dark, or a chroma style name")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println("boltpage", version)
		return nil
	}

	if flags.NArg() != 1 {
		return errUsage
	}
	file, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *theme != "" {
		cfg.Theme = *theme
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	opts := []boltpage.Option{boltpage.WithLogger(logger)}
	if cfg.DebounceMS > 0 {
		opts = append(opts, boltpage.WithDebounce(time.Duration(cfg.DebounceMS)*time.Millisecond))
	}
	if cfg.CacheCapacity > 0 {
		opts = append(opts, boltpage.WithCacheCapacity(cfg.CacheCapacity))
	}

	clients := newClientHub()
	opts = append(opts, boltpage.WithNotify(func(consumerID, path string) {
		clients.notify(consumerID)
	}))

	svc, err := boltpage.NewRenderService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newHandler(svc, clients, file, cfg.Theme, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving preview",
			slog.String("file", file),
			slog.String("addr", cfg.Listen),
			slog.String("theme", cfg.Theme))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newHandler builds the two-route preview mux: the rendered page and the
// change-event stream.
func newHandler(svc *boltpage.RenderService, clients *clientHub, file, theme string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		body, err := svc.RenderFile(r.Context(), file, theme)
		if err != nil {
			logger.Error("render failed", slog.String("error", err.Error()))
			http.Error(w, err.Error(), renderStatus(err))
			return
		}
		css, err := svc.ThemeStylesheet(theme)
		if err != nil {
			// Degrade to unstyled output rather than blocking display.
			logger.Warn("stylesheet unavailable", slog.String("error", err.Error()))
			css = ""
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = page.Execute(w, pageData{
			Title: filepath.Base(file),
			CSS:   template.CSS(css),
			Body:  template.HTML(body), // #nosec G203 -- sanitized by the render pipeline
		})
	})

	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		id, ch := clients.add()
		defer clients.remove(id)

		if err := svc.Subscribe(file, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() { _ = svc.Unsubscribe(id) }()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ch:
				fmt.Fprint(w, "data: changed\n\n")
				flusher.Flush()
			}
		}
	})

	return mux
}

// renderStatus maps render errors onto HTTP statuses.
func renderStatus(err error) int {
	switch {
	case errors.Is(err, boltpage.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, boltpage.ErrIO):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientHub tracks connected SSE clients. Each client is one subscriber of
// the watched file.
type clientHub struct {
	mu      sync.Mutex
	next    atomic.Uint64
	clients map[string]chan struct{}
}

func newClientHub() *clientHub {
	return &clientHub{clients: make(map[string]chan struct{})}
}

func (h *clientHub) add() (string, <-chan struct{}) {
	id := fmt.Sprintf("sse-%d", h.next.Add(1))
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *clientHub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// notify wakes one client; a slow client coalesces to a single pending
// wakeup instead of blocking delivery.
func (h *clientHub) notify(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}
