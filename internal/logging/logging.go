// Package logging holds the shared logrus loggers. Output is discarded until
// TREEWATCH_DEBUG is set or a log file is configured.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	Debug   *logrus.Entry
	Scanner *logrus.Entry
	Watcher *logrus.Entry
	Enabled bool

	base = logrus.New()
	// TREEWATCH_DEBUG pins the level to debug
	pinned bool
)

func init() {
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
		DisableColors:   true,
	})

	Debug = base.WithField("component", "app")
	Scanner = base.WithField("component", "scanner")
	Watcher = base.WithField("component", "watcher")

	// Only enable logging if TREEWATCH_DEBUG environment variable is set
	if os.Getenv("TREEWATCH_DEBUG") == "" {
		base.SetOutput(io.Discard)
		Enabled = false
		return
	}

	base.SetLevel(logrus.DebugLevel)
	pinned = true
	if err := openFile("debug.log"); err != nil {
		// Fallback to stderr if we can't open the file
		base.SetOutput(os.Stderr)
	}
	Enabled = true
}

// Configure directs all loggers to file at the given level. An empty file
// keeps the current destination; an empty level keeps the current level.
func Configure(level, file string) error {
	if level != "" && !pinned {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		base.SetLevel(lvl)
	}
	if file == "" {
		return nil
	}
	if err := openFile(file); err != nil {
		return err
	}
	Enabled = true
	return nil
}

// SetOutput redirects all loggers, used by headless commands and tests
func SetOutput(w io.Writer) {
	base.SetOutput(w)
	Enabled = w != io.Discard
}

func openFile(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	base.SetOutput(f)
	return nil
}
