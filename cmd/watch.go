package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumipallolabs/treewatch/internal/core"
	"github.com/lumipallolabs/treewatch/internal/logging"
	"github.com/lumipallolabs/treewatch/internal/model"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Scan a directory and print changes as they happen",
	Long: `Scan a directory, then print one line per entry created (+) or deleted (-)
below it until interrupted. Directories end with a path separator. When output
falls behind a burst, a "!" line reports how many changes were not shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if !logging.Enabled {
		logging.SetOutput(cmd.ErrOrStderr())
	}

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := scan(ctx, ctrl); err != nil {
		return err
	}

	events, err := ctrl.StartWatching()
	if err != nil {
		return err
	}
	return printChanges(ctx, cmd.OutOrStdout(), events)
}

// scan runs the initial scan to completion and returns the populated tree
func scan(ctx context.Context, ctrl *core.Controller) (*model.Tree, error) {
	events, err := ctrl.StartScan(ctx)
	if err != nil {
		return nil, err
	}
	var tree *model.Tree
	var scanErr error
	for event := range events {
		if e, ok := event.(core.ScanCompletedEvent); ok {
			tree, scanErr = e.Tree, e.Err
		}
	}
	if scanErr != nil {
		return nil, fmt.Errorf("scan: %w", scanErr)
	}
	if tree == nil {
		return nil, ctx.Err()
	}
	return tree, nil
}

// printChanges writes one line per change until ctx is done or events closes
func printChanges(ctx context.Context, out io.Writer, events <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if line := formatChange(event); line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}
}

func formatChange(event core.Event) string {
	switch e := event.(type) {
	case core.WatchStartedEvent:
		return fmt.Sprintf("watching %s (%d directories)", e.Root, e.Dirs)
	case core.CreationDetectedEvent:
		return "+ " + relName(e.Rel, e.IsDir)
	case core.DeletionDetectedEvent:
		return "- " + relName(e.Rel, e.IsDir)
	case core.EventsDroppedEvent:
		return fmt.Sprintf("! %d changes not shown", e.Count)
	}
	return ""
}

func relName(rel []string, isDir bool) string {
	name := strings.Join(rel, string(filepath.Separator))
	if isDir {
		name += string(filepath.Separator)
	}
	return name
}
