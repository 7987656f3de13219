//go:build !darwin

package ui

import (
	"os"
	"time"
)

// getCreationTime reports no birth time where the stat result lacks one
func getCreationTime(info os.FileInfo) time.Time {
	return time.Time{}
}
