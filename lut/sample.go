// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// Sampler selects how a color between grid points is read from a table.
// The values match the sampler field of the device kernel.
type Sampler int32

const (
	// Nearest picks the closest grid point per channel.
	Nearest Sampler = iota

	// Linear interpolates across the 8 surrounding grid points.
	Linear

	// Tetrahedral interpolates within one of the 6 tetrahedra
	// that split the surrounding grid cell.
	Tetrahedral
)

// SamplerNames lists the accepted sampler names. "trilinear" is an
// alias for "linear", and an empty name means [Linear].
var SamplerNames = []string{"nearest", "linear", "trilinear", "tetrahedral"}

// ParseSampler returns the sampler with the given name.
func ParseSampler(name string) (Sampler, error) {
	switch strings.ToLower(name) {
	case "nearest":
		return Nearest, nil
	case "", "linear", "trilinear":
		return Linear, nil
	case "tetrahedral":
		return Tetrahedral, nil
	}
	return Nearest, fmt.Errorf("sampler %q: %w", name, ErrUnsupportedSampler)
}

func (s Sampler) String() string {
	switch s {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	case Tetrahedral:
		return "tetrahedral"
	}
	return "Sampler(" + strconv.Itoa(int(s)) + ")"
}

// gridCoord maps one input channel through the domain into
// [0, dim-1] grid units. NaN maps to 0.
func gridCoord(v, lo, hi float32, dim int) float32 {
	t := (v - lo) / (hi - lo)
	if !(t > 0) {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * float32(dim-1)
}

// volume is an RGBA grid of dim^3 cells, as produced by [Table.RGBA].
type volume struct {
	data []float32
	dim  int
}

func (v *volume) cell(r, g, b int) []float32 {
	i := ((b*v.dim+g)*v.dim + r) * 4
	return v.data[i : i+4 : i+4]
}

func (v *volume) nearest(c [3]float32) [4]float32 {
	var idx [3]int
	for i := range 3 {
		idx[i] = min(int(math32.Floor(c[i]+0.5)), v.dim-1)
	}
	return [4]float32(v.cell(idx[0], idx[1], idx[2]))
}

// base returns the lower grid index and the fraction within the cell.
// The top edge uses the last cell with a fraction of 1.
func (v *volume) base(c float32) (int, float32) {
	i := min(int(math32.Floor(c)), v.dim-2)
	return i, c - float32(i)
}

func (v *volume) linear(c [3]float32) [4]float32 {
	r0, fr := v.base(c[0])
	g0, fg := v.base(c[1])
	b0, fb := v.base(c[2])
	var out [4]float32
	for ch := range 4 {
		c00 := lerp(v.cell(r0, g0, b0)[ch], v.cell(r0+1, g0, b0)[ch], fr)
		c10 := lerp(v.cell(r0, g0+1, b0)[ch], v.cell(r0+1, g0+1, b0)[ch], fr)
		c01 := lerp(v.cell(r0, g0, b0+1)[ch], v.cell(r0+1, g0, b0+1)[ch], fr)
		c11 := lerp(v.cell(r0, g0+1, b0+1)[ch], v.cell(r0+1, g0+1, b0+1)[ch], fr)
		out[ch] = lerp(lerp(c00, c10, fg), lerp(c01, c11, fg), fb)
	}
	return out
}

func (v *volume) tetrahedral(c [3]float32) [4]float32 {
	r0, rx := v.base(c[0])
	g0, ry := v.base(c[1])
	b0, rz := v.base(c[2])
	r1, g1, b1 := r0+1, g0+1, b0+1

	c000 := v.cell(r0, g0, b0)
	c111 := v.cell(r1, g1, b1)
	// the walk from c000 to c111 goes through two more corners,
	// in order of the largest fraction first
	var p1, p2 []float32
	var w1, w2, w3 float32
	switch {
	case rx >= ry && ry >= rz:
		p1, p2 = v.cell(r1, g0, b0), v.cell(r1, g1, b0)
		w1, w2, w3 = rx, ry, rz
	case rx >= rz && rz >= ry:
		p1, p2 = v.cell(r1, g0, b0), v.cell(r1, g0, b1)
		w1, w2, w3 = rx, rz, ry
	case rz >= rx && rx >= ry:
		p1, p2 = v.cell(r0, g0, b1), v.cell(r1, g0, b1)
		w1, w2, w3 = rz, rx, ry
	case ry >= rx && rx >= rz:
		p1, p2 = v.cell(r0, g1, b0), v.cell(r1, g1, b0)
		w1, w2, w3 = ry, rx, rz
	case ry >= rz && rz >= rx:
		p1, p2 = v.cell(r0, g1, b0), v.cell(r0, g1, b1)
		w1, w2, w3 = ry, rz, rx
	default: // rz >= ry >= rx
		p1, p2 = v.cell(r0, g0, b1), v.cell(r0, g1, b1)
		w1, w2, w3 = rz, ry, rx
	}
	var out [4]float32
	for ch := range 4 {
		out[ch] = c000[ch] + (p1[ch]-c000[ch])*w1 + (p2[ch]-p1[ch])*w2 + (c111[ch]-p2[ch])*w3
	}
	return out
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// transformPixel applies the volume to one normalized RGBA pixel.
// A volume without its own alpha passes the input alpha through.
func (v *volume) transformPixel(px [4]float32, p *Params) [4]float32 {
	var c [3]float32
	for i := range 3 {
		c[i] = gridCoord(px[i], p.DomainMin[i], p.DomainMax[i], v.dim)
	}
	var out [4]float32
	switch p.Sampler {
	case Nearest:
		out = v.nearest(c)
	case Tetrahedral:
		out = v.tetrahedral(c)
	default:
		out = v.linear(c)
	}
	if !p.HasAlpha {
		out[3] = px[3]
	}
	return out
}

// Sample returns the table value for one input color using the given
// sampler. The input is in the table domain. For a 3 channel table the
// returned alpha is 1.
func (tb *Table) Sample(s Sampler, rgb [3]float32) [4]float32 {
	v := &volume{data: tb.RGBA(), dim: tb.Dimension}
	p := Params{Sampler: s, HasAlpha: true, Dimension: tb.Dimension, DomainMin: tb.DomainMin, DomainMax: tb.DomainMax}
	return v.transformPixel([4]float32{rgb[0], rgb[1], rgb[2], 1}, &p)
}

// Range returns the smallest and largest value in the table per channel.
func (tb *Table) Range() (lo, hi [4]float32) {
	for i := range 4 {
		lo[i], hi[i] = math32.Inf(1), math32.Inf(-1)
	}
	for i, x := range tb.Data {
		ch := i % tb.Channels
		lo[ch] = math32.Min(lo[ch], x)
		hi[ch] = math32.Max(hi[ch], x)
	}
	if tb.Channels == 3 {
		lo[3], hi[3] = 1, 1
	}
	return
}
