// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/lut/cube"
	"cogentcore.org/lut/lut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("LUT_BACKEND", "software")
	os.Setenv("LUT_CONFIG", "")
	os.Exit(m.Run())
}

func identityCube(t *testing.T, size int) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, cube.Write(&b, cube.Identity(size)))
	return b.Bytes()
}

func TestNewEngine(t *testing.T) {
	env := map[string]string{"LUT_LOG_LEVEL": "loud"}
	getenv := func(k string) string { return env[k] }
	_, err := newEngine(getenv)
	assert.ErrorIs(t, err, lut.ErrInvalidArgument)

	fn := filepath.Join(t.TempDir(), "lut.toml")
	require.NoError(t, os.WriteFile(fn, []byte("backend = \"software\"\nmax_dimension = 9\n"), 0o644))
	env = map[string]string{"LUT_LOG_LEVEL": "warn", "LUT_CONFIG": fn}
	en, err := newEngine(getenv)
	require.NoError(t, err)
	assert.Equal(t, 9, en.Config.MaxDimension)
	assert.Equal(t, "software", en.Config.Backend)
	en.Release()

	env["LUT_BACKEND"] = "vulkan"
	_, err = newEngine(getenv)
	assert.ErrorIs(t, err, lut.ErrInvalidArgument)

	env = map[string]string{"LUT_CONFIG": filepath.Join(t.TempDir(), "lut.ini")}
	_, err = newEngine(getenv)
	assert.Error(t, err)
}

func TestCalls(t *testing.T) {
	data := identityCube(t, 5)
	assert.Equal(t, int32(lut.OK), addLUT("id", "cube", data))
	assert.Equal(t, int32(lut.DuplicateName), addLUT("id", "cube", data))
	assert.Equal(t, int32(lut.UnsupportedFormat), addLUT("x", "3dl", data))
	assert.Equal(t, int32(lut.ParseError), addLUT("x", "cube", []byte("LUT_3D_SIZE 1\n")))

	pix := []byte{0, 0, 0, 255, 255, 255, 255, 7}
	assert.Equal(t, int32(lut.OK), processPixels("id", "tetrahedral", "rgba8", 2, 1, pix))
	assert.Equal(t, []byte{0, 0, 0, 255, 255, 255, 255, 7}, pix)
	assert.Equal(t, int32(lut.UnsupportedSampler), processPixels("id", "cubic", "rgba8", 2, 1, pix))
	assert.Equal(t, int32(lut.UnsupportedPixelFormat), processPixels("id", "linear", "yuv", 2, 1, pix))
	assert.Equal(t, int32(lut.BufferSizeMismatch), processPixels("id", "linear", "rgba8", 3, 1, pix))
	assert.Equal(t, int32(lut.NotFound), processPixels("none", "linear", "rgba8", 2, 1, pix))
	assert.Equal(t, int32(lut.InvalidArgument), processPixels("id", "linear", "rgba8", math.MaxInt32+1, 1, pix))
	assert.Equal(t, int32(lut.InvalidArgument), processPixels("id", "linear", "rgba8", 1, math.MaxUint32, pix))
	assert.Equal(t, int32(lut.BufferSizeMismatch), processPixels("id", "linear", "rgba8", 0, 1, pix))

	assert.Equal(t, int32(lut.DimensionMismatch), addLUTRaw("raw", 2, make([]byte, 12), false))
	assert.Equal(t, int32(lut.DimensionMismatch), addLUTRaw("raw", cube.MaxSize+1, make([]byte, 12), true))
	assert.Equal(t, int32(lut.DimensionMismatch), addLUTRaw("raw", math.MaxUint32, nil, false))
	assert.Equal(t, int32(lut.OK), addLUTRaw("raw", 2, make([]byte, 2*2*2*16), true))
	assert.Equal(t, int32(lut.OK), deleteLUT("raw"))
	assert.Equal(t, int32(lut.NotFound), deleteLUT("raw"))
	assert.Equal(t, int32(lut.OK), deleteLUT("id"))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warm.cube"), identityCube(t, 3), 0o644))
	assert.Equal(t, int32(lut.OK), loadDir(dir))
	assert.Equal(t, int32(lut.DuplicateName), loadDir(dir))
	assert.Equal(t, int32(lut.OK), deleteLUT("warm"))
	assert.Equal(t, int32(lut.Internal), loadDir(filepath.Join(dir, "missing")))
}
