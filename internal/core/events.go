package core

import "github.com/lumipallolabs/treewatch/internal/model"

// Event represents a state change from the controller
type Event interface {
	isEvent()
}

// ScanStartedEvent is emitted when a scan begins
type ScanStartedEvent struct {
	Path string
}

func (ScanStartedEvent) isEvent() {}

// ScanProgressEvent is emitted during scanning
type ScanProgressEvent struct {
	FilesScanned int64
	DirsScanned  int64
	BytesFound   int64
}

func (ScanProgressEvent) isEvent() {}

// ScanPhaseChangedEvent is emitted when scan phase changes
type ScanPhaseChangedEvent struct {
	Phase ScanPhase
}

func (ScanPhaseChangedEvent) isEvent() {}

// ScanCompletedEvent is emitted when scan finishes
type ScanCompletedEvent struct {
	Tree *model.Tree
	Err  error
}

func (ScanCompletedEvent) isEvent() {}

// WatchStartedEvent is emitted once the watcher is running
type WatchStartedEvent struct {
	Root string
	Dirs int
}

func (WatchStartedEvent) isEvent() {}

// CreationDetectedEvent is emitted after a new entry was added to the tree
type CreationDetectedEvent struct {
	Path  string
	Rel   []string
	IsDir bool
}

func (CreationDetectedEvent) isEvent() {}

// DeletionDetectedEvent is emitted after an entry was removed from the tree
type DeletionDetectedEvent struct {
	Path  string
	Rel   []string
	IsDir bool
}

func (DeletionDetectedEvent) isEvent() {}

// EventsDroppedEvent reports change events that did not fit in the channel.
// The tree itself still holds every change.
type EventsDroppedEvent struct {
	Count int64
}

func (EventsDroppedEvent) isEvent() {}

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) isEvent() {}
