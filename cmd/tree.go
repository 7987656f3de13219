package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumipallolabs/treewatch/internal/model"
	"github.com/lumipallolabs/treewatch/internal/ui"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Scan a directory and print its tree once",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "maximum depth to print (0 = unlimited)")
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}

	tree, err := scan(cmd.Context(), ctrl)
	if err != nil {
		return err
	}
	tree.View(func(root *model.Node) {
		printTree(cmd.OutOrStdout(), root, treeDepth)
	})
	return nil
}

// printTree writes root and its descendants, children indented under their
// parent in tree order. Caller holds the read lock.
func printTree(out io.Writer, root *model.Node, maxDepth int) {
	root.Walk(func(n *model.Node, depth int) bool {
		name := n.Name
		if depth == 0 {
			name = n.Path
		}
		if n.IsDir {
			name += "/"
		}
		fmt.Fprintf(out, "%s%s  %s\n", strings.Repeat("  ", depth), name, ui.FormatSize(n.TotalSize()))
		return maxDepth == 0 || depth < maxDepth
	})
}
