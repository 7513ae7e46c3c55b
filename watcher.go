package boltpage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// NotifyFunc delivers a fileChanged event for one subscriber. It is called
// once per eligible consumer after debounce and cache invalidation.
type NotifyFunc func(consumerID, path string)

// fsWatcher abstracts the OS-level file-notification primitive so tests can
// substitute a stub and count installed watches.
type fsWatcher interface {
	Add(path string) error
	Remove(path string) error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Close() error
}

// osWatcher adapts fsnotify to the fsWatcher interface.
type osWatcher struct {
	w *fsnotify.Watcher
}

func newOSWatcher() (fsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &osWatcher{w: w}, nil
}

func (o *osWatcher) Add(path string) error         { return o.w.Add(path) }
func (o *osWatcher) Remove(path string) error      { return o.w.Remove(path) }
func (o *osWatcher) Events() <-chan fsnotify.Event { return o.w.Events }
func (o *osWatcher) Errors() <-chan error          { return o.w.Errors }
func (o *osWatcher) Close() error                  { return o.w.Close() }

// watchState is the per-path record: subscriber set plus the pending
// debounce timer. A path holds at most one in-flight timer.
type watchState struct {
	subscribers map[string]struct{}
	pending     *time.Timer
	gen         uint64 // invalidates stale timer callbacks
}

// WatchMultiplexer owns at most one OS watch per distinct file path and
// fans a single logical "changed" notification out to every subscriber of
// that path. Raw change signals are debounced per path; when the burst
// quiesces the multiplexer invalidates the render cache for the path and
// then notifies subscribers, in that order.
//
// One mutex guards the whole table so the subscriber-list mutation and the
// watch-creation/teardown decision for a path are atomic together.
type WatchMultiplexer struct {
	fw       fsWatcher
	cache    *RenderCache
	notify   NotifyFunc
	debounce time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	paths      map[string]*watchState
	byConsumer map[string]string // consumerID -> watched path
	closed     bool

	done chan struct{}
	wg   sync.WaitGroup
}

// newWatchMultiplexer wires a multiplexer over fw and starts its event
// loop. cache may be nil when there is nothing to invalidate.
func newWatchMultiplexer(fw fsWatcher, cache *RenderCache, notify NotifyFunc, debounce time.Duration, logger *slog.Logger) *WatchMultiplexer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &WatchMultiplexer{
		fw:         fw,
		cache:      cache,
		notify:     notify,
		debounce:   debounce,
		logger:     logger,
		paths:      make(map[string]*watchState),
		byConsumer: make(map[string]string),
		done:       make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// NewWatchMultiplexer creates a multiplexer backed by an OS watcher.
func NewWatchMultiplexer(cache *RenderCache, notify NotifyFunc, debounce time.Duration, logger *slog.Logger) (*WatchMultiplexer, error) {
	fw, err := newOSWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}
	return newWatchMultiplexer(fw, cache, notify, debounce, logger), nil
}

// Subscribe registers consumerID as an observer of path. The first
// subscriber for a path installs the OS watch; install failure is returned
// synchronously and leaves no partial state. Subscribing again to the same
// path is a no-op; subscribing to a different path moves the consumer.
func (m *WatchMultiplexer) Subscribe(path, consumerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrServiceClosed
	}

	if current, ok := m.byConsumer[consumerID]; ok {
		if current == path {
			return nil
		}
		// A consumer observes at most one path at a time.
		m.removeLocked(consumerID)
	}

	st, ok := m.paths[path]
	if !ok {
		if err := m.fw.Add(path); err != nil {
			return fmt.Errorf("%w: %v", ErrWatchSetup, err)
		}
		st = &watchState{subscribers: make(map[string]struct{})}
		m.paths[path] = st
		m.logger.Debug("watch installed", slog.String("path", path))
	}
	st.subscribers[consumerID] = struct{}{}
	m.byConsumer[consumerID] = path
	return nil
}

// Unsubscribe removes consumerID from its path's subscriber list. When the
// list becomes empty the OS watch is torn down and any in-flight debounce
// timer is cancelled. Unsubscribing an unknown consumer is a no-op.
func (m *WatchMultiplexer) Unsubscribe(consumerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(consumerID)
	return nil
}

// removeLocked drops the consumer from both directions of the subscription
// table in one critical section, so no orphaned watches survive and no
// notification targets a torn-down consumer.
func (m *WatchMultiplexer) removeLocked(consumerID string) {
	path, ok := m.byConsumer[consumerID]
	if !ok {
		return
	}
	delete(m.byConsumer, consumerID)

	st, ok := m.paths[path]
	if !ok {
		return
	}
	delete(st.subscribers, consumerID)
	if len(st.subscribers) > 0 {
		return
	}

	if st.pending != nil {
		st.pending.Stop()
		st.pending = nil
	}
	st.gen++ // a timer that already fired must not deliver
	delete(m.paths, path)
	if err := m.fw.Remove(path); err != nil {
		m.logger.Warn("watch removal failed",
			slog.String("path", path), slog.String("error", err.Error()))
	} else {
		m.logger.Debug("watch removed", slog.String("path", path))
	}
}

// SubscriberCount reports how many consumers observe path.
func (m *WatchMultiplexer) SubscriberCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.paths[path]; ok {
		return len(st.subscribers)
	}
	return 0
}

// Close tears down every watch and stops the event loop.
func (m *WatchMultiplexer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for path, st := range m.paths {
		if st.pending != nil {
			st.pending.Stop()
		}
		st.gen++
		delete(m.paths, path)
	}
	m.byConsumer = make(map[string]string)
	close(m.done)
	m.mu.Unlock()

	err := m.fw.Close()
	m.wg.Wait()
	return err
}

// run consumes raw OS signals until Close.
func (m *WatchMultiplexer) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.fw.Events():
			if !ok {
				return
			}
			// Chmod-only events carry no content change. Remove and Rename
			// still count: editors that replace-on-save report them.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// The OS watch died with the old inode; re-install it for
				// the successor file or later edits go unseen.
				m.wg.Add(1)
				go m.rearm(ev.Name)
			}
			m.bump(ev.Name)
		case err, ok := <-m.fw.Errors():
			if !ok {
				return
			}
			m.logger.Error("watch error", slog.String("error", err.Error()))
		}
	}
}

// rearm re-installs the OS watch for a path whose inode was removed or
// renamed away, retrying briefly until the replacement file exists. Gives up
// when the path is no longer subscribed or the multiplexer closes.
func (m *WatchMultiplexer) rearm(path string) {
	defer m.wg.Done()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)

	for {
		// Check-and-add under the table lock so an unsubscribe cannot slip
		// in between and leave an untracked OS watch behind.
		m.mu.Lock()
		_, watched := m.paths[path]
		var err error
		if watched {
			err = m.fw.Add(path)
		}
		m.mu.Unlock()
		if !watched {
			return
		}
		if err == nil {
			m.logger.Debug("watch re-installed", slog.String("path", path))
			return
		}
		select {
		case <-m.done:
			return
		case <-deadline:
			m.logger.Warn("watch re-install gave up", slog.String("path", path))
			return
		case <-ticker.C:
		}
	}
}

// bump restarts the debounce timer for path. Only after the window elapses
// with no further signal does the pending action fire.
func (m *WatchMultiplexer) bump(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.paths[path]
	if !ok {
		return // signal for a path nobody watches anymore
	}
	if st.pending != nil {
		st.pending.Stop()
	}
	st.gen++
	gen := st.gen
	st.pending = time.AfterFunc(m.debounce, func() {
		m.fire(path, gen)
	})
}

// fire invalidates the cache for path and then notifies every currently
// subscribed consumer exactly once. Invalidate-then-notify: a consumer that
// re-renders after the notification never sees cache content older than the
// triggering change.
func (m *WatchMultiplexer) fire(path string, gen uint64) {
	m.mu.Lock()
	st, ok := m.paths[path]
	if !ok || st.gen != gen {
		// Superseded by a newer signal or torn down while in flight.
		m.mu.Unlock()
		return
	}
	st.pending = nil
	subscribers := make([]string, 0, len(st.subscribers))
	for id := range st.subscribers {
		subscribers = append(subscribers, id)
	}
	m.mu.Unlock()

	if m.cache != nil {
		m.cache.InvalidatePath(path)
	}
	for _, id := range subscribers {
		m.deliver(id, path)
	}
}

// deliver runs the host callback for one subscriber, swallowing panics so a
// disappeared consumer cannot abort delivery to the rest.
func (m *WatchMultiplexer) deliver(consumerID, path string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("change notification failed",
				slog.String("consumer", consumerID),
				slog.String("path", path),
				slog.Any("reason", r))
		}
	}()
	if m.notify != nil {
		m.notify(consumerID, path)
	}
}
