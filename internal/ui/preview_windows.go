//go:build windows

package ui

import "os/exec"

// previewFile opens the file with the associated application
func previewFile(path string) error {
	return exec.Command("cmd", "/c", "start", "", path).Start()
}
