package watcher

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lumipallolabs/treewatch/internal/logging"
)

// Handle identifies one watched directory. Zero is never a valid handle.
type Handle uint64

// Kind classifies a change notification
type Kind int

const (
	Created Kind = iota + 1
	Deleted
	// Overflow means the OS dropped notifications
	Overflow
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Overflow:
		return "overflow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ChangeEvent is a single notification. Name is relative to the directory
// of the batch it arrived in and may hold several path components on
// recursive backends.
type ChangeEvent struct {
	Kind Kind
	Name string
}

// Batch groups the events delivered together for one watched directory
type Batch struct {
	Handle Handle
	Events []ChangeEvent
}

// Source is an OS notification backend.
//
// Add and Remove are called from the goroutine that calls Next. Close may be
// called from any goroutine and wakes a blocked Next, which then returns
// ErrClosed.
type Source interface {
	// Add starts watching path for entries being created or deleted
	Add(path string) (Handle, error)
	// Remove releases a handle returned by Add
	Remove(h Handle) error
	// Next blocks until a batch is available
	Next(ctx context.Context) (Batch, error)
	Close() error
}

// Backend names
const (
	BackendFSNotify = "fsnotify"
	BackendFSEvents = "fsevents"
)

// NewSource creates the named backend. An empty name selects fsnotify.
// log receives backend diagnostics; nil uses the shared watcher logger.
func NewSource(backend string, log *logrus.Entry) (Source, error) {
	if log == nil {
		log = logging.Watcher
	}
	switch backend {
	case "", BackendFSNotify:
		s, err := newFSNotifySource(log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendFSEvents:
		s, err := newFSEventsSource(log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendUnsupported, backend)
	}
}
