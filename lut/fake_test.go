// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDevice is a software device that can be told to fail.
type fakeDevice struct {
	*SoftwareDevice

	// submitFails is the number of Execute calls left to fail with ErrSubmit.
	submitFails atomic.Int32

	// lost makes every call fail with ErrDeviceLost.
	lost atomic.Bool

	uploads  atomic.Int32
	executes atomic.Int32
	images   atomic.Int32
}

func (fd *fakeDevice) UploadVolume(tb *Table) (Volume, error) {
	if fd.lost.Load() {
		return nil, fmt.Errorf("fake upload: %w", ErrDeviceLost)
	}
	fd.uploads.Add(1)
	return fd.SoftwareDevice.UploadVolume(tb)
}

func (fd *fakeDevice) UploadImage(pix []float32, width, height int) (Image, error) {
	if fd.lost.Load() {
		return nil, fmt.Errorf("fake image: %w", ErrDeviceLost)
	}
	fd.images.Add(1)
	return fd.SoftwareDevice.UploadImage(pix, width, height)
}

func (fd *fakeDevice) Execute(vol Volume, img Image, params Params) (Result, error) {
	fd.executes.Add(1)
	if fd.lost.Load() {
		return nil, fmt.Errorf("fake execute: %w", ErrDeviceLost)
	}
	if fd.submitFails.Add(-1) >= 0 {
		return nil, fmt.Errorf("fake execute: %w", ErrSubmit)
	}
	return fd.SoftwareDevice.Execute(vol, img, params)
}

// fakeOpener opens a new fakeDevice on each call and records them.
type fakeOpener struct {
	devices []*fakeDevice
	err     error
	opens   int
}

func (fo *fakeOpener) open() (Device, error) {
	fo.opens++
	if fo.err != nil {
		return nil, fo.err
	}
	fd := &fakeDevice{SoftwareDevice: NewSoftwareDevice(2)}
	fo.devices = append(fo.devices, fd)
	return fd, nil
}

func (fo *fakeOpener) last() *fakeDevice {
	return fo.devices[len(fo.devices)-1]
}

func testConfig() Config {
	c := DefaultConfig()
	c.Backend = "software"
	return c
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	en := NewEngine(testConfig(), SoftwareOpener(3))
	t.Cleanup(en.Release)
	return en
}

func newFakeEngine(t *testing.T) (*Engine, *fakeOpener) {
	t.Helper()
	fo := &fakeOpener{}
	en := NewEngine(testConfig(), fo.open)
	t.Cleanup(en.Release)
	return en, fo
}

// rampRGBA8 returns a w*h rgba8 image with varied colors and alpha.
func rampRGBA8(w, h int) []byte {
	b := make([]byte, w*h*4)
	for i := range w * h {
		b[i*4] = byte(i * 7)
		b[i*4+1] = byte(i*13 + 50)
		b[i*4+2] = byte(255 - i*3)
		b[i*4+3] = byte(i * 5)
	}
	return b
}

func addIdentity(t *testing.T, en *Engine, name string, dim int) {
	t.Helper()
	require.NoError(t, en.AddLUTRaw(name, dim, Identity(dim).EncodeRaw()))
}
