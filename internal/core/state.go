package core

import (
	"time"

	"github.com/lumipallolabs/treewatch/internal/model"
)

// ScanPhase represents the current phase of scanning
type ScanPhase int

const (
	PhaseIdle ScanPhase = iota
	PhaseScanning
	PhaseComputingSizes
	PhaseComplete
)

// String returns a human-readable phase name
func (p ScanPhase) String() string {
	switch p {
	case PhaseScanning:
		return "Scanning files"
	case PhaseComputingSizes:
		return "Computing sizes"
	case PhaseComplete:
		return "Complete"
	default:
		return ""
	}
}

// ScanState holds the current scan state
type ScanState struct {
	Phase        ScanPhase
	StartTime    time.Time
	FilesScanned int64
	DirsScanned  int64
	BytesFound   int64
}

// IsScanning returns true if a scan is in progress (including the brief "Complete" display)
func (s ScanState) IsScanning() bool {
	return s.Phase == PhaseScanning || s.Phase == PhaseComputingSizes || s.Phase == PhaseComplete
}

// Elapsed returns time since scan started
func (s ScanState) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime).Truncate(time.Second)
}

// WatchState summarizes live watching
type WatchState struct {
	Active     bool
	Root       string
	Dirs       int
	Created    int64
	Deleted    int64
	Dropped    int64 // change events the reader missed
	LastChange string
	LastAt     time.Time
}

// AppState holds the complete application state (read-only view)
type AppState struct {
	Root   string
	Volume *model.Volume
	Scan   ScanState
	Watch  WatchState
	Error  error
}
