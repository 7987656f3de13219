package watcher

import "errors"

var (
	// ErrClosed is returned by a Source once it has been closed
	ErrClosed = errors.New("watcher: source closed")

	// ErrAlreadyStarted is returned by Start on a running watcher
	ErrAlreadyStarted = errors.New("watcher: already started")

	// ErrStopped is returned by Start once the watcher has been stopped
	ErrStopped = errors.New("watcher: stopped")

	// ErrNotDirectory is returned when the root is not a directory
	ErrNotDirectory = errors.New("watcher: not a directory")

	// ErrBackendUnsupported is returned for a backend this platform lacks
	ErrBackendUnsupported = errors.New("watcher: backend not supported on this platform")

	// ErrUnknownHandle is returned when releasing a handle the source never issued
	ErrUnknownHandle = errors.New("watcher: unknown handle")
)
