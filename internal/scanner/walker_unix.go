//go:build unix

package scanner

import (
	"io/fs"
	"sync"

	"golang.org/x/sys/unix"
)

// platformRootInfo holds platform-specific root information
type platformRootInfo struct {
	dev uint64
}

func getPlatformRootInfo(path string) platformRootInfo {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return platformRootInfo{}
	}
	return platformRootInfo{dev: uint64(stat.Dev)}
}

// shouldSkipDir skips mount points and directories already seen through
// another path (firmlinks on macOS)
func shouldSkipDir(path string, d fs.DirEntry, rootInfo platformRootInfo, seenItems *sync.Map) bool {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return false
	}

	if rootInfo.dev != 0 && uint64(stat.Dev) != rootInfo.dev {
		return true
	}

	if _, exists := seenItems.LoadOrStore(stat.Ino, true); exists {
		return true
	}
	return false
}

// getFileSize returns the allocated size. Additional hard links to an
// already counted inode report zero so totals are not inflated.
func getFileSize(path string, info fs.FileInfo, seenItems *sync.Map) int64 {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return info.Size()
	}
	if stat.Nlink > 1 {
		if _, exists := seenItems.LoadOrStore(stat.Ino, true); exists {
			return 0
		}
	}
	// Blocks is in 512-byte units
	return int64(stat.Blocks) * 512
}
