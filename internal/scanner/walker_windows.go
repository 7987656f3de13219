//go:build windows

package scanner

import (
	"io/fs"
	"sync"
)

// Drives are separate roots on Windows, no mount point detection needed
type platformRootInfo struct{}

func getPlatformRootInfo(path string) platformRootInfo {
	return platformRootInfo{}
}

func shouldSkipDir(path string, d fs.DirEntry, rootInfo platformRootInfo, seenItems *sync.Map) bool {
	return false
}

func getFileSize(path string, info fs.FileInfo, seenItems *sync.Map) int64 {
	return info.Size()
}
