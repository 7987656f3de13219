//go:build !darwin && !windows

package ui

import "os/exec"

// previewFile opens the file with the desktop's default viewer
func previewFile(path string) error {
	return exec.Command("xdg-open", path).Start()
}
