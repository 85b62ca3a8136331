// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cube reads and writes 3D lookup tables in the .cube text format.
//
// A .cube file has an optional TITLE line, a LUT_3D_SIZE N declaration,
// optional DOMAIN_MIN and DOMAIN_MAX lines, and then exactly N*N*N rows
// of three floating point values. Red varies fastest, then green,
// then blue.
package cube

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cogentcore.org/core/base/errors"
)

const (
	// MinSize is the smallest cube size accepted by [Parse].
	MinSize = 2

	// MaxSize is the largest cube size accepted by [Parse].
	MaxSize = 65535
)

// LUT is the parsed content of a .cube file.
type LUT struct {
	// Title is the TITLE line, without quotes. It may be empty.
	Title string

	// Size is the number of grid points along each axis.
	Size int

	// DomainMin is the input value mapped to the first grid point.
	DomainMin [3]float32

	// DomainMax is the input value mapped to the last grid point.
	DomainMax [3]float32

	// Data has Size^3 rows of 3 values, red varying fastest.
	Data []float32
}

// DefaultDomain returns the [0,1] domain used when a file has no DOMAIN lines.
func DefaultDomain() (lo, hi [3]float32) {
	return [3]float32{0, 0, 0}, [3]float32{1, 1, 1}
}

// Rows returns the number of data rows expected for the LUT size.
func (l *LUT) Rows() int {
	return l.Size * l.Size * l.Size
}

// ParseError reports a problem at a specific line of the input.
// Line is 1-based; it is 0 when the problem is at the end of input.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return "cube: " + e.Reason
	}
	return fmt.Sprintf("cube: line %d: %s", e.Line, e.Reason)
}

func errorf(line int, format string, a ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, a...)}
}

// ParseBytes parses .cube text held in memory.
func ParseBytes(b []byte) (*LUT, error) {
	return Parse(bytes.NewReader(b))
}

// Parse reads a 3D LUT in the .cube format. It has no side effects
// beyond reading r. Every failure is a [*ParseError], except for read
// errors from r, which are returned as is.
func Parse(r io.Reader) (*LUT, error) {
	l := &LUT{}
	l.DomainMin, l.DomainMax = DefaultDomain()
	expect := 0
	rows := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if isKeyword(line) {
			if rows > 0 {
				return nil, errorf(ln, "keyword %q after data rows", firstField(line))
			}
			if err := l.header(ln, line); err != nil {
				return nil, err
			}
			if l.Size > 0 && expect == 0 {
				expect = l.Rows()
				l.Data = make([]float32, 0, min(expect, 1<<20)*3)
			}
			continue
		}
		if l.Size == 0 {
			return nil, errorf(ln, "data row before LUT_3D_SIZE")
		}
		if rows == expect {
			return nil, errorf(ln, "too many data rows: LUT_3D_SIZE %d needs %d", l.Size, expect)
		}
		var err error
		l.Data, err = appendRow(l.Data, ln, line)
		if err != nil {
			return nil, err
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if l.Size == 0 {
		return nil, errorf(0, "missing LUT_3D_SIZE")
	}
	if rows != expect {
		return nil, errorf(0, "too few data rows: need %d, got %d", expect, rows)
	}
	for i := range 3 {
		if l.DomainMin[i] >= l.DomainMax[i] {
			return nil, errorf(0, "DOMAIN_MIN %v must be below DOMAIN_MAX %v", l.DomainMin, l.DomainMax)
		}
	}
	return l, nil
}

// isKeyword reports whether the line starts with a keyword such as
// LUT_3D_SIZE rather than a number. NaN and Inf count as numbers, so
// that they are rejected as non-finite values.
func isKeyword(line string) bool {
	c := line[0]
	if c < 'A' || c > 'Z' {
		return false
	}
	_, err := strconv.ParseFloat(firstField(line), 32)
	return err != nil && !errors.Is(err, strconv.ErrRange)
}

func firstField(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return line
}

// header handles one keyword line.
func (l *LUT) header(ln int, line string) error {
	key := firstField(line)
	rest := strings.TrimSpace(line[len(key):])
	switch key {
	case "TITLE":
		l.Title = strings.Trim(rest, `"`)
	case "LUT_3D_SIZE":
		if l.Size != 0 {
			return errorf(ln, "duplicate LUT_3D_SIZE")
		}
		n, err := strconv.Atoi(strings.Trim(rest, `"`))
		if err != nil {
			return errorf(ln, "LUT_3D_SIZE %q is not an integer", rest)
		}
		if n < MinSize || n > MaxSize {
			return errorf(ln, "LUT_3D_SIZE %d out of range [%d,%d]", n, MinSize, MaxSize)
		}
		l.Size = n
	case "LUT_1D_SIZE":
		return errorf(ln, "1D LUTs are not supported")
	case "DOMAIN_MIN":
		v, err := parseTriple(ln, rest)
		if err != nil {
			return err
		}
		l.DomainMin = v
	case "DOMAIN_MAX":
		v, err := parseTriple(ln, rest)
		if err != nil {
			return err
		}
		l.DomainMax = v
	}
	// other keywords (LUT_IN_VIDEO_RANGE and the like) carry no data
	return nil
}

func parseTriple(ln int, s string) ([3]float32, error) {
	var v [3]float32
	fs := strings.Fields(s)
	if len(fs) != 3 {
		return v, errorf(ln, "need 3 values, got %d", len(fs))
	}
	for i, f := range fs {
		x, err := parseFloat(ln, f)
		if err != nil {
			return v, err
		}
		v[i] = x
	}
	return v, nil
}

func appendRow(data []float32, ln int, line string) ([]float32, error) {
	fs := strings.Fields(line)
	if len(fs) != 3 {
		return data, errorf(ln, "need 3 floats per row, got %d", len(fs))
	}
	for _, f := range fs {
		x, err := parseFloat(ln, f)
		if err != nil {
			return data, err
		}
		data = append(data, x)
	}
	return data, nil
}

func parseFloat(ln int, tok string) (float32, error) {
	x, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errorf(ln, "value %q is not finite", tok)
		}
		return 0, errorf(ln, "can not parse %q as float", tok)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, errorf(ln, "value %q is not finite", tok)
	}
	return float32(x), nil
}
