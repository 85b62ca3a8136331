// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"cogentcore.org/core/base/errors"
	"github.com/google/uuid"
)

// Registry holds named tables and their device volumes.
// It is safe for concurrent use.
type Registry struct {
	cx *Context

	// maxDim bounds table dimensions, in addition to the device limit.
	maxDim int

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	name  string
	id    uuid.UUID
	added time.Time
	table *Table

	// refs counts the live handles. Remove fails while it is above 0.
	refs atomic.Int32

	// mu guards vol and gen.
	mu  sync.Mutex
	vol Volume
	gen uint64
}

// Info describes a registry entry.
type Info struct {
	Name      string
	ID        uuid.UUID
	Added     time.Time
	Title     string
	Dimension int
	Channels  int
}

// NewRegistry returns an empty registry uploading to the device of cx.
// A maxDim > 0 limits the table dimension.
func NewRegistry(cx *Context, maxDim int) *Registry {
	return &Registry{cx: cx, maxDim: maxDim, entries: make(map[string]*entry)}
}

func (rg *Registry) has(name string) bool {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	_, ok := rg.entries[name]
	return ok
}

// Add validates tb, uploads it to the device and stores it under name.
// It fails with [ErrDuplicateName] if the name is taken; replacing an
// entry is a [Registry.Remove] followed by an Add. On any failure the
// registry is unchanged. The registry keeps tb, which must not be
// modified after.
func (rg *Registry) Add(name string, tb *Table) error {
	if name == "" {
		return fmt.Errorf("lut.Registry Add: empty name: %w", ErrInvalidArgument)
	}
	if tb == nil {
		return fmt.Errorf("lut.Registry Add %q: nil table: %w", name, ErrInvalidArgument)
	}
	if rg.has(name) {
		return fmt.Errorf("lut.Registry Add %q: %w", name, ErrDuplicateName)
	}
	dev, gen, err := rg.cx.EnsureInitialized()
	if err != nil {
		return err
	}
	maxDim := dev.Limits().MaxDimension
	if rg.maxDim > 0 && (maxDim <= 0 || rg.maxDim < maxDim) {
		maxDim = rg.maxDim
	}
	if err := tb.Validate(maxDim); err != nil {
		return fmt.Errorf("lut.Registry Add %q: %w", name, err)
	}
	vol, err := dev.UploadVolume(tb)
	if err != nil {
		if errors.Is(err, ErrDeviceLost) {
			rg.cx.MarkLost(gen)
		}
		return fmt.Errorf("lut.Registry Add %q: %w", name, errors.Log(err))
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	if _, ok := rg.entries[name]; ok {
		vol.Release()
		return fmt.Errorf("lut.Registry Add %q: %w", name, ErrDuplicateName)
	}
	e := &entry{name: name, id: uuid.New(), added: time.Now(), table: tb, vol: vol, gen: gen}
	rg.entries[name] = e
	slog.Debug("lut.Registry Add", "Name", name, "Dimension", tb.Dimension, "Channels", tb.Channels, "ID", e.id)
	return nil
}

// AddRaw decodes a raw little-endian float32 grid (see [DecodeRaw])
// with 3 channels, or 4 if hasAlpha, and adds it under name.
func (rg *Registry) AddRaw(name string, dim int, raw []byte, hasAlpha bool) error {
	channels := 3
	if hasAlpha {
		channels = 4
	}
	tb, err := DecodeRaw(dim, channels, raw)
	if err != nil {
		return fmt.Errorf("lut.Registry AddRaw %q: %w", name, err)
	}
	return rg.Add(name, tb)
}

// Remove deletes the entry and releases its volume. It fails with
// [ErrNotFound] for an unknown name and with [ErrEntryBusy] while any
// [Handle] for the entry is live.
func (rg *Registry) Remove(name string) error {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	e, ok := rg.entries[name]
	if !ok {
		return fmt.Errorf("lut.Registry Remove %q: %w", name, ErrNotFound)
	}
	if n := e.refs.Load(); n > 0 {
		return fmt.Errorf("lut.Registry Remove %q: %d in use: %w", name, n, ErrEntryBusy)
	}
	delete(rg.entries, name)
	e.release()
	slog.Debug("lut.Registry Remove", "Name", name)
	return nil
}

// Acquire returns a handle for the named entry, which keeps it from
// being removed until [Handle.Release].
func (rg *Registry) Acquire(name string) (*Handle, error) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	e, ok := rg.entries[name]
	if !ok {
		return nil, fmt.Errorf("lut.Registry Acquire %q: %w", name, ErrNotFound)
	}
	e.refs.Add(1)
	return &Handle{e: e, cx: rg.cx}, nil
}

// Names returns the sorted names of all entries.
func (rg *Registry) Names() []string {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	names := make([]string, 0, len(rg.entries))
	for n := range rg.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of entries.
func (rg *Registry) Len() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return len(rg.entries)
}

// Info returns a description of the named entry.
func (rg *Registry) Info(name string) (Info, error) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	e, ok := rg.entries[name]
	if !ok {
		return Info{}, fmt.Errorf("lut.Registry Info %q: %w", name, ErrNotFound)
	}
	return e.info(), nil
}

// Release removes every entry, whether in use or not, and releases
// their volumes.
func (rg *Registry) Release() {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	for _, e := range rg.entries {
		e.release()
	}
	rg.entries = make(map[string]*entry)
}

func (e *entry) info() Info {
	return Info{Name: e.name, ID: e.id, Added: e.added, Title: e.table.Title, Dimension: e.table.Dimension, Channels: e.table.Channels}
}

func (e *entry) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vol != nil {
		e.vol.Release()
		e.vol = nil
	}
}

// Handle is a counted reference to a registry entry.
// Release it when done, typically with defer.
type Handle struct {
	e    *entry
	cx   *Context
	done atomic.Bool
}

// Name returns the entry name.
func (h *Handle) Name() string { return h.e.name }

// Table returns the host copy of the table.
func (h *Handle) Table() *Table { return h.e.table }

// Info returns a description of the entry.
func (h *Handle) Info() Info { return h.e.info() }

// Volume returns the entry volume on the current device, with the device
// and its generation. A volume from an older generation, left by a lost
// device, is uploaded again first.
func (h *Handle) Volume() (Volume, Device, uint64, error) {
	dev, gen, err := h.cx.EnsureInitialized()
	if err != nil {
		return nil, nil, 0, err
	}
	e := h.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vol != nil && e.gen == gen {
		return e.vol, dev, gen, nil
	}
	if e.vol != nil {
		e.vol.Release()
		e.vol = nil
	}
	slog.Debug("lut.Handle upload", "Name", e.name, "Generation", gen)
	vol, err := dev.UploadVolume(e.table)
	if err != nil {
		if errors.Is(err, ErrDeviceLost) {
			h.cx.MarkLost(gen)
		}
		return nil, nil, 0, fmt.Errorf("lut.Handle Volume %q: %w", e.name, errors.Log(err))
	}
	e.vol, e.gen = vol, gen
	return vol, dev, gen, nil
}

// Release drops the reference. Extra calls do nothing.
func (h *Handle) Release() {
	if h.done.CompareAndSwap(false, true) {
		h.e.refs.Add(-1)
	}
}
