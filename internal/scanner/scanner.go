package scanner

import (
	"context"

	"github.com/lumipallolabs/treewatch/internal/model"
)

// Progress reports scanning progress
type Progress struct {
	FilesScanned int64
	DirsScanned  int64
	BytesFound   int64
	CurrentPath  string
}

// Scanner defines the interface for filesystem scanning
type Scanner interface {
	// Scan scans the given root path and returns a tree of nodes
	Scan(ctx context.Context, root string) (*model.Node, error)

	// Progress returns a channel that receives progress updates
	Progress() <-chan Progress
}

// Entry is a single file-system entry found below a directory
type Entry struct {
	Path  string   // absolute path
	Rel   []string // components relative to the walked directory
	IsDir bool
}
