//go:build !windows && !darwin

package ui

import "os/exec"

// openInFileManager opens the given directory with xdg-open
func openInFileManager(path string) error {
	return exec.Command("xdg-open", path).Start()
}
