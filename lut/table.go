// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"encoding/binary"
	"fmt"
	"math"

	"cogentcore.org/lut/cube"
	"github.com/chewxy/math32"
)

// MinDimension is the smallest supported grid size.
const MinDimension = 2

// Table is a 3D lookup table held in host memory.
// Data has Dimension^3 rows of Channels values, red varying fastest,
// then green, then blue.
type Table struct {
	// Title is an optional descriptive name, from the .cube TITLE line.
	Title string

	// Dimension is the number of grid points per axis.
	Dimension int

	// Channels is 3 (RGB) or 4 (RGBA).
	Channels int

	// DomainMin is the input color mapped to the first grid point.
	DomainMin [3]float32

	// DomainMax is the input color mapped to the last grid point.
	DomainMax [3]float32

	// Data is the grid, Dimension^3 * Channels values.
	Data []float32
}

// NewTable returns a table with the default [0,1] domain and a zeroed grid.
func NewTable(dim, channels int) *Table {
	tb := &Table{Dimension: dim, Channels: channels}
	tb.DomainMin, tb.DomainMax = cube.DefaultDomain()
	if dim > 0 && channels > 0 {
		tb.Data = make([]float32, dim*dim*dim*channels)
	}
	return tb
}

// Identity returns a 3 channel table mapping each grid point to its own
// normalized coordinate.
func Identity(dim int) *Table {
	return FromCube(cube.Identity(dim))
}

// FromCube converts a parsed .cube file to a 3 channel table.
// The data is shared, not copied.
func FromCube(c *cube.LUT) *Table {
	return &Table{
		Title:     c.Title,
		Dimension: c.Size,
		Channels:  3,
		DomainMin: c.DomainMin,
		DomainMax: c.DomainMax,
		Data:      c.Data,
	}
}

// Cube returns the table as a .cube LUT, dropping any alpha channel.
func (tb *Table) Cube() *cube.LUT {
	c := &cube.LUT{Title: tb.Title, Size: tb.Dimension, DomainMin: tb.DomainMin, DomainMax: tb.DomainMax}
	if tb.Channels == 3 {
		c.Data = tb.Data
		return c
	}
	n := tb.Cells()
	c.Data = make([]float32, n*3)
	for i := range n {
		copy(c.Data[i*3:i*3+3], tb.Data[i*tb.Channels:])
	}
	return c
}

// Cells returns the number of grid points, Dimension^3.
func (tb *Table) Cells() int {
	return tb.Dimension * tb.Dimension * tb.Dimension
}

// HasAlpha reports whether the table has its own alpha channel.
func (tb *Table) HasAlpha() bool {
	return tb.Channels == 4
}

// Index returns the offset in Data of the grid point at r, g, b.
func (tb *Table) Index(r, g, b int) int {
	n := tb.Dimension
	return ((b*n+g)*n + r) * tb.Channels
}

// Validate checks the shape of the table and that every value is finite.
// A maxDim > 0 bounds the dimension.
func (tb *Table) Validate(maxDim int) error {
	if tb.Dimension < MinDimension {
		return fmt.Errorf("dimension %d is below %d: %w", tb.Dimension, MinDimension, ErrDimensionMismatch)
	}
	if maxDim > 0 && tb.Dimension > maxDim {
		return fmt.Errorf("dimension %d is above the device limit %d: %w", tb.Dimension, maxDim, ErrDimensionMismatch)
	}
	if tb.Channels != 3 && tb.Channels != 4 {
		return fmt.Errorf("%d channels, need 3 or 4: %w", tb.Channels, ErrDimensionMismatch)
	}
	if need := tb.Cells() * tb.Channels; len(tb.Data) != need {
		return fmt.Errorf("have %d values, need %d: %w", len(tb.Data), need, ErrDimensionMismatch)
	}
	for i, v := range tb.Data {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("value %d is %v: %w", i, v, ErrInvalidValue)
		}
	}
	for i := range 3 {
		if !(tb.DomainMin[i] < tb.DomainMax[i]) {
			return fmt.Errorf("domain %v to %v is empty: %w", tb.DomainMin, tb.DomainMax, ErrInvalidValue)
		}
	}
	return nil
}

// RGBA returns the grid with 4 values per cell, padding 3 channel
// tables with an alpha of 1. This is the layout of a device volume.
func (tb *Table) RGBA() []float32 {
	if tb.Channels == 4 {
		return tb.Data
	}
	n := tb.Cells()
	out := make([]float32, n*4)
	for i := range n {
		copy(out[i*4:i*4+3], tb.Data[i*3:i*3+3])
		out[i*4+3] = 1
	}
	return out
}

// DecodeRaw decodes a raw little-endian float32 grid of the given
// dimension and channel count. The length must be exactly
// dim^3 * channels * 4 bytes. Every value is checked to be finite.
func DecodeRaw(dim, channels int, raw []byte) (*Table, error) {
	if dim < MinDimension || dim > cube.MaxSize {
		return nil, fmt.Errorf("dimension %d out of range [%d,%d]: %w", dim, MinDimension, cube.MaxSize, ErrDimensionMismatch)
	}
	need := dim * dim * dim * channels * 4
	if len(raw) != need {
		return nil, fmt.Errorf("have %d bytes, dimension %d with %d channels needs %d: %w", len(raw), dim, channels, need, ErrDimensionMismatch)
	}
	tb := NewTable(dim, channels)
	for i := range tb.Data {
		v := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return nil, fmt.Errorf("value %d is %v: %w", i, v, ErrInvalidValue)
		}
		tb.Data[i] = v
	}
	return tb, nil
}

// EncodeRaw is the inverse of [DecodeRaw].
func (tb *Table) EncodeRaw() []byte {
	out := make([]byte, len(tb.Data)*4)
	for i, v := range tb.Data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
