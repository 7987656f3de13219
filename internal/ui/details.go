package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lumipallolabs/treewatch/internal/model"
)

// describe builds the one-line summary shown under the panels for node.
// tree guards the walk below node and may be nil for detached nodes.
func describe(tree *model.Tree, node *model.Node) string {
	if node == nil {
		return ""
	}

	var files, depth int
	count := func(*model.Node) {
		depth = node.Depth()
		if node.IsDir {
			files = node.CountFiles()
		}
	}
	if tree != nil {
		tree.View(count)
	} else {
		count(nil)
	}

	info, err := os.Lstat(node.Path)
	if err != nil {
		return node.Path + "  (gone)"
	}

	parts := []string{node.Path}
	if node.IsDir {
		noun := "files"
		if files == 1 {
			noun = "file"
		}
		parts = append(parts, fmt.Sprintf("directory, %d %s", files, noun))
	} else {
		parts = append(parts, FormatSize(info.Size()))
		if mt, err := mimetype.DetectFile(node.Path); err == nil {
			parts = append(parts, mt.String())
		}
	}
	parts = append(parts, fmt.Sprintf("depth %d", depth))
	parts = append(parts, "modified "+info.ModTime().Format(time.DateTime))
	if created := getCreationTime(info); !created.IsZero() {
		parts = append(parts, "created "+created.Format(time.DateTime))
	}
	return strings.Join(parts, "  ·  ")
}

// DetailsLine renders the details of the selected node on one line
func DetailsLine(tree *model.Tree, node *model.Node, width int) string {
	text := describe(tree, node)
	if text == "" {
		text = "Nothing selected"
	}
	return DetailsStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(text)
}
