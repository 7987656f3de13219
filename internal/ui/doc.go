// Package ui implements the terminal user interface for treewatch using Bubbletea.
//
// The UI renders the tree kept by the core controller and never mutates it.
// Every read of the node graph happens under the tree's read lock, because
// the watcher goroutine inserts and removes nodes concurrently.
package ui
