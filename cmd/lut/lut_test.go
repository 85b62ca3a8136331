// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/lut/cube"
	"cogentcore.org/lut/lut"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 13, 7))
	for y := range 7 {
		for x := range 13 {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 19), uint8(y * 36), uint8(255 - x*y), 255})
		}
	}
	return img
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	c := &Config{Sampler: "linear", Mix: 1, Size: 17, Jobs: 2, Backend: "software"}
	c.LUT = filepath.Join(dir, "id.cube")
	c.Output = c.LUT
	require.NoError(t, Identity(c))
	in := filepath.Join(dir, "in.png")
	require.NoError(t, imgio.Save(in, testImage(), imgio.PNGEncoder()))
	c.Inputs = []string{in}
	c.Output = filepath.Join(dir, "out.png")
	return c
}

func TestApplyIdentity(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, Apply(c))
	got, err := openImage(c.Output)
	require.NoError(t, err)
	want := testImage()
	for y := range 7 {
		for x := range 13 {
			assert.Equal(t, want.RGBAAt(x, y), color.RGBAModel.Convert(got.At(x, y)).(color.RGBA))
		}
	}
}

func TestApplyMany(t *testing.T) {
	c := testConfig(t)
	second := filepath.Join(filepath.Dir(c.Inputs[0]), "second.bmp")
	require.NoError(t, saveImage(second, testImage()))
	c.Inputs = append(c.Inputs, second)
	c.Output = filepath.Join(t.TempDir(), "graded")
	require.NoError(t, Apply(c))
	for _, fn := range []string{"in.png", "second.bmp"} {
		_, err := openImage(filepath.Join(c.Output, fn))
		assert.NoError(t, err, fn)
	}
}

func TestApplyErrors(t *testing.T) {
	c := testConfig(t)
	c.Sampler = "cubic"
	assert.ErrorIs(t, Apply(c), lut.ErrUnsupportedSampler)

	c = testConfig(t)
	c.Inputs = []string{c.LUT}
	assert.ErrorIs(t, Apply(c), lut.ErrUnsupportedFormat, "not an image")

	c = testConfig(t)
	c.Inputs = nil
	assert.ErrorIs(t, Apply(c), lut.ErrInvalidArgument)

	c = testConfig(t)
	c.Backend = "vulkan"
	assert.ErrorIs(t, Apply(c), lut.ErrInvalidArgument)
}

func TestEncoder(t *testing.T) {
	for _, fn := range []string{"a.png", "a.JPG", "a.jpeg", "a.bmp", "a.tiff"} {
		_, err := encoder(fn)
		assert.NoError(t, err, fn)
	}
	_, err := encoder("a.gif")
	assert.ErrorIs(t, err, lut.ErrUnsupportedFormat)
}

func TestDescribe(t *testing.T) {
	tb := lut.Identity(5)
	tb.Title = "grade"
	s := describe(tb)
	assert.Contains(t, s, "Title:  grade\n")
	assert.Contains(t, s, "Size:   5\n")
	assert.Contains(t, s, "Range:  [0 0 0] - [1 1 1]\n")
}

func TestInfo(t *testing.T) {
	c := testConfig(t)
	assert.NoError(t, Info(c))
	c.LUT = c.Inputs[0]
	assert.Equal(t, lut.ParseError, lut.StatusOf(Info(c)))
	os.Remove(c.LUT)
	assert.ErrorIs(t, Info(c), os.ErrNotExist)
}

func TestIdentity(t *testing.T) {
	c := &Config{Size: 17, Output: filepath.Join(t.TempDir(), "id.cube")}
	require.NoError(t, Identity(c))
	f, err := os.Open(c.Output)
	require.NoError(t, err)
	defer f.Close()
	l, err := cube.Parse(f)
	require.NoError(t, err)
	assert.Equal(t, 17, l.Size)
	assert.Equal(t, "Identity 17", l.Title)

	c.Size = 1
	assert.Error(t, Identity(c))
	c.Output = ""
	assert.ErrorIs(t, Identity(c), lut.ErrInvalidArgument)
	c.Output = filepath.Join(t.TempDir(), "missing", "id.cube")
	c.Size = 2
	assert.Error(t, Identity(c))
}
