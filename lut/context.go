// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"log/slog"
	"sync"

	"cogentcore.org/core/base/errors"
)

// Context owns the one shared [Device]. It opens the device lazily on
// first use and reopens it after [Context.MarkLost].
//
// Each successful open starts a new generation. A volume uploaded in an
// older generation belongs to a released device and must be uploaded
// again.
type Context struct {
	open Opener

	mu  sync.Mutex
	dev Device
	gen uint64

	// err is set when the device could not be opened, and is returned
	// by every later call.
	err error
}

// NewContext returns a context that opens its device with open.
func NewContext(open Opener) *Context {
	return &Context{open: open}
}

// EnsureInitialized returns the device and its generation, opening it
// if needed. A failure to open wraps [ErrDeviceUnavailable] and is
// permanent for this context.
func (cx *Context) EnsureInitialized() (Device, uint64, error) {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	if cx.err != nil {
		return nil, 0, cx.err
	}
	if cx.dev != nil {
		return cx.dev, cx.gen, nil
	}
	dev, err := cx.open()
	if err == nil && dev == nil {
		err = errors.New("opener returned no device")
	}
	if err != nil {
		cx.err = fmt.Errorf("lut.Context EnsureInitialized: %w: %w", ErrDeviceUnavailable, err)
		errors.Log(cx.err)
		return nil, 0, cx.err
	}
	cx.dev = dev
	cx.gen++
	slog.Info("lut.Context device", "Name", dev.Name(), "Generation", cx.gen)
	return cx.dev, cx.gen, nil
}

// MarkLost releases the device of generation gen, if it is still the
// current one. The next [Context.EnsureInitialized] opens a new device.
func (cx *Context) MarkLost(gen uint64) {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	if cx.dev == nil || gen != cx.gen {
		return
	}
	slog.Warn("lut.Context device lost", "Name", cx.dev.Name(), "Generation", gen)
	cx.dev.Release()
	cx.dev = nil
}

// Generation returns the generation of the current device, or of the
// last device if none is open.
func (cx *Context) Generation() uint64 {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return cx.gen
}

// Release releases the device. The context can be used again after.
func (cx *Context) Release() {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	if cx.dev != nil {
		cx.dev.Release()
		cx.dev = nil
	}
}
