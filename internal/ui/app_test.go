package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/treewatch/internal/core"
)

// driver runs an App the way the bubbletea runtime would, executing commands
// on goroutines and feeding their messages back into Update
type driver struct {
	t    *testing.T
	app  App
	msgs chan tea.Msg
}

func newDriver(t *testing.T, app App) *driver {
	d := &driver{t: t, app: app, msgs: make(chan tea.Msg, 64)}
	d.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	d.spawn(app.Init())
	return d
}

func (d *driver) spawn(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() { d.msgs <- cmd() }()
}

func (d *driver) update(msg tea.Msg) {
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, cmd := range batch {
			d.spawn(cmd)
		}
		return
	}
	m, cmd := d.app.Update(msg)
	d.app = m.(App)
	d.spawn(cmd)
}

// until processes messages until cond holds
func (d *driver) until(cond func(App) bool, msg string) {
	d.t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond(d.app) {
		select {
		case m := <-d.msgs:
			d.update(m)
		case <-deadline:
			d.t.Fatalf("timed out waiting for %s", msg)
		}
	}
}

func TestAppScansThenFollowsChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the real file system watcher")
	}
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0755))

	ctrl, err := core.NewController(core.Options{Root: root, Workers: 2})
	require.NoError(t, err)
	t.Cleanup(ctrl.Stop)

	d := newDriver(t, NewApp(ctrl, true))
	d.until(func(a App) bool { return !a.scanning && a.tree.Len() > 0 }, "scan")
	d.until(func(a App) bool { return a.header.watch.Active }, "watching")
	require.NoError(t, d.app.err)
	require.Equal(t, []string{filepath.Base(root), "docs"}, rowNames(d.app.tree))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0644))
	d.until(func(a App) bool {
		return a.tree.indexOf(filepath.Join(root, "notes.txt")) >= 0
	}, "created file in tree panel")
	require.Equal(t, int64(1), d.app.header.watch.Created)

	require.NoError(t, os.Remove(filepath.Join(root, "docs")))
	d.until(func(a App) bool {
		return a.tree.indexOf(filepath.Join(root, "docs")) < 0
	}, "deleted dir gone from tree panel")
}
