// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lutdir

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/cube"
	"cogentcore.org/lut/lut"
	"github.com/fsnotify/fsnotify"
)

// Watcher applies the changes to the .cube files of a directory to
// a [Registry]. A changed file replaces its table by delete then add.
// A table that is in use when its file changes keeps the old data until
// the next event for that file.
type Watcher struct {
	// Dir is the watched directory.
	Dir string

	// Registry receives the changes.
	Registry Registry

	// Changed, if set, is called after each change is handled, with the
	// table name and the error, if any.
	Changed func(name string, err error)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher returns a watcher of dir that is not started yet.
func NewWatcher(reg Registry, dir string) *Watcher {
	return &Watcher{Dir: dir, Registry: reg}
}

// Start begins watching. Changes are handled on a separate goroutine
// until [Watcher.Close].
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.Dir); err != nil {
		fw.Close()
		return fmt.Errorf("lutdir.Watcher Start %s: %w", w.Dir, err)
	}
	w.watcher = fw
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.Handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("lutdir.Watcher", "Dir", w.Dir, "Error", err)
		}
	}
}

// Handle applies one file event. It is called by the watch goroutine.
func (w *Watcher) Handle(ev fsnotify.Event) {
	if !IsTable(ev.Name) {
		return
	}
	name := Name(ev.Name)
	var err error
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		err = w.replace(name, ev.Name)
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		err = w.Registry.DeleteLUT(name)
		if errors.Is(err, lut.ErrNotFound) {
			err = nil
		}
	default:
		return
	}
	if err != nil {
		slog.Warn("lutdir.Watcher", "Name", name, "Error", err)
	} else {
		slog.Debug("lutdir.Watcher", "Name", name, "Op", ev.Op.String())
	}
	if w.Changed != nil {
		w.Changed(name, err)
	}
}

// replace parses the file once, so a bad file leaves the old table.
// Between the delete and the add the name is absent. If the add fails,
// the old table is added back; when that fails too, as on a lost device,
// the name stays absent until the next event.
func (w *Watcher) replace(name, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	c, err := cube.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("lutdir.Watcher %s: %w", filename, err)
	}
	old, err := w.Registry.Table(name)
	if err != nil && !errors.Is(err, lut.ErrNotFound) {
		return err
	}
	if old != nil {
		if err := w.Registry.DeleteLUT(name); err != nil {
			return err
		}
	}
	err = w.Registry.AddTable(name, lut.FromCube(c))
	if err != nil && old != nil {
		if rerr := w.Registry.AddTable(name, old); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	return err
}

// Close stops watching and waits for the watch goroutine.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	w.watcher = nil
	return err
}
