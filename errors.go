package boltpage

import "errors"

// Sentinel errors for library operations.
var (
	// ErrInvalidInput indicates a structured document (JSON/YAML) failed to
	// parse. The wrapped message carries the parser diagnostic.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIO indicates the file could not be stat'ed or read at render time.
	ErrIO = errors.New("file access failed")

	// ErrWatchSetup indicates an OS-level watch could not be installed for a
	// path. The path stays unwatched and no notifications will arrive for it.
	ErrWatchSetup = errors.New("watch setup failed")

	// ErrNoThemes indicates the style registry is empty. Renders degrade to
	// unhighlighted output instead of failing; only stylesheet requests
	// surface this.
	ErrNoThemes = errors.New("no syntax themes available")

	// ErrServiceClosed is returned by operations on a closed service.
	ErrServiceClosed = errors.New("render service closed")
)
