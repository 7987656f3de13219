//go:build !darwin

package watcher

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// fseventsSource is only available on darwin
type fseventsSource struct {
	Source
}

func newFSEventsSource(*logrus.Entry) (*fseventsSource, error) {
	return nil, fmt.Errorf("%w: %s", ErrBackendUnsupported, BackendFSEvents)
}
