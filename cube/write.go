// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cube

import (
	"bufio"
	"fmt"
	"io"
)

// Write writes l in the .cube format. DOMAIN lines are only written
// when the domain differs from [0,1].
func Write(w io.Writer, l *LUT) error {
	if l.Size < MinSize || l.Size > MaxSize {
		return fmt.Errorf("cube.Write: size %d out of range [%d,%d]", l.Size, MinSize, MaxSize)
	}
	if len(l.Data) != l.Rows()*3 {
		return fmt.Errorf("cube.Write: have %d values, need %d", len(l.Data), l.Rows()*3)
	}
	bw := bufio.NewWriter(w)
	if l.Title != "" {
		fmt.Fprintf(bw, "TITLE \"%s\"\n", l.Title)
	}
	lo, hi := DefaultDomain()
	if l.DomainMin != lo || l.DomainMax != hi {
		fmt.Fprintf(bw, "DOMAIN_MIN %.6f %.6f %.6f\n", l.DomainMin[0], l.DomainMin[1], l.DomainMin[2])
		fmt.Fprintf(bw, "DOMAIN_MAX %.6f %.6f %.6f\n", l.DomainMax[0], l.DomainMax[1], l.DomainMax[2])
	}
	fmt.Fprintf(bw, "LUT_3D_SIZE %d\n", l.Size)
	for i := 0; i < len(l.Data); i += 3 {
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", l.Data[i], l.Data[i+1], l.Data[i+2])
	}
	return bw.Flush()
}

// Identity returns an identity LUT of the given size, which maps every
// grid point to its own normalized coordinate.
func Identity(size int) *LUT {
	l := &LUT{Title: fmt.Sprintf("Identity %d", size), Size: size}
	l.DomainMin, l.DomainMax = DefaultDomain()
	l.Data = make([]float32, 0, l.Rows()*3)
	step := 1 / float32(size-1)
	for b := range size {
		for g := range size {
			for r := range size {
				l.Data = append(l.Data, float32(r)*step, float32(g)*step, float32(b)*step)
			}
		}
	}
	return l
}
