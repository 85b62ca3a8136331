// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lutdir loads a directory of .cube files into a table registry
// and keeps it in sync with the directory.
package lutdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/lut"
)

// Ext is the extension of the files that are loaded.
const Ext = ".cube"

// Adder adds a table in a named format, as [lut.Engine.AddLUT] does.
type Adder interface {
	AddLUT(name, format string, data []byte) error
}

// Registry is an [Adder] that can also get, add and delete parsed
// tables, as [lut.Engine] does.
type Registry interface {
	Adder
	AddTable(name string, tb *lut.Table) error
	Table(name string) (*lut.Table, error)
	DeleteLUT(name string) error
}

// IsTable returns whether the file name has the table extension.
func IsTable(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), Ext)
}

// Name returns the table name for a file: its base name without
// the extension.
func Name(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load adds every .cube file in dir to reg under its [Name], and returns
// the names that were added in directory order. Files that fail do not
// stop the others; their errors are joined.
func Load(reg Adder, dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	var errs []error
	for _, de := range des {
		if de.IsDir() || !IsTable(de.Name()) {
			continue
		}
		fn := filepath.Join(dir, de.Name())
		if err := loadFile(reg, fn); err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, Name(fn))
	}
	return names, errors.Join(errs...)
}

func loadFile(reg Adder, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := reg.AddLUT(Name(filename), "cube", data); err != nil {
		return fmt.Errorf("lutdir.Load %s: %w", filename, err)
	}
	return nil
}
