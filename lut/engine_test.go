// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/iox/imagex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestProcessIdentity(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "id", 17)
	for _, s := range []string{"linear", "trilinear", "", "tetrahedral"} {
		src := rampRGBA8(16, 16)
		data := bytes.Clone(src)
		require.NoError(t, en.Process("id", s, "rgba8", 16, 16, data))
		assert.Equal(t, src, data, "sampler %q", s)
	}
}

func TestProcessIdentityNearest(t *testing.T) {
	en := newTestEngine(t)
	// 18 points put a grid point on every multiple of 15
	addIdentity(t, en, "id", 18)
	src := rampRGBA8(16, 16)
	data := bytes.Clone(src)
	require.NoError(t, en.Process("id", "nearest", "rgba8", 16, 16, data))
	for i := range src {
		if i%4 == 3 {
			assert.Equal(t, src[i], data[i], "alpha passes through")
			continue
		}
		assert.InDelta(t, int(src[i]), int(data[i]), 8, "byte %d", i)
	}

	grid := []byte{0, 15, 30, 255, 120, 240, 255, 60}
	data = bytes.Clone(grid)
	require.NoError(t, en.Process("id", "nearest", "rgba8", 2, 1, data))
	assert.Equal(t, grid, data)
}

func TestProcessIdempotent(t *testing.T) {
	en := newTestEngine(t)
	require.NoError(t, en.AddLUT("grade", "cube", []byte(gradeCube)))
	for _, s := range []string{"nearest", "linear", "tetrahedral"} {
		a := rampRGBA8(9, 7)
		b := rampRGBA8(9, 7)
		require.NoError(t, en.Process("grade", s, "rgba8", 9, 7, a))
		require.NoError(t, en.Process("grade", s, "rgba8", 9, 7, b))
		assert.Equal(t, a, b)
		assert.NotEqual(t, rampRGBA8(9, 7), a)
	}
}

// gradeCube is a 2 point cube with swapped red and blue, darkened.
const gradeCube = `TITLE "swap"
LUT_3D_SIZE 2
0 0 0
0 0 0.8
0 0.8 0
0 0.8 0.8
0.8 0 0
0.8 0 0.8
0.8 0.8 0
0.8 0.8 0.8
`

func TestProcessWhiteCorner(t *testing.T) {
	en := newTestEngine(t)
	txt := "LUT_3D_SIZE 2\n" + "0 0 0\n0 0 0\n0 0 0\n0 0 0\n0 0 0\n0 0 0\n0 0 0\n1 1 1\n"
	require.NoError(t, en.AddLUT("white", "cube", []byte(txt)))
	for _, s := range []string{"nearest", "linear", "tetrahedral"} {
		white := []byte{255, 255, 255, 255}
		require.NoError(t, en.Process("white", s, "rgba8", 1, 1, white))
		assert.Equal(t, []byte{255, 255, 255, 255}, white)

		black := []byte{0, 0, 0, 200}
		require.NoError(t, en.Process("white", s, "rgba8", 1, 1, black))
		assert.Equal(t, []byte{0, 0, 0, 200}, black)
	}
}

func TestProcessValidation(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "id", 4)
	src := rampRGBA8(2, 2)
	tests := []struct {
		name    string
		lut     string
		sampler string
		format  string
		w, h    int
		data    []byte
		want    Status
	}{
		{"sampler first", "missing", "cubic", "nope", 2, 2, src[:3], UnsupportedSampler},
		{"format before size", "missing", "linear", "nope", 2, 2, src[:3], UnsupportedPixelFormat},
		{"size before lookup", "missing", "linear", "rgba8", 2, 2, src[:3], BufferSizeMismatch},
		{"zero width", "id", "linear", "rgba8", 0, 2, nil, BufferSizeMismatch},
		{"rgb8 size", "id", "linear", "rgb8", 2, 2, src, BufferSizeMismatch},
		{"not found", "missing", "linear", "rgba8", 2, 2, src, NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Clone(tt.data)
			err := en.Process(tt.lut, tt.sampler, tt.format, tt.w, tt.h, data)
			assert.Equal(t, tt.want, StatusOf(err), "%v", err)
			assert.Equal(t, tt.data, data)
		})
	}
}

func TestProcessAlpha(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "rgb", 3)

	tb := NewTable(3, 4)
	for i := range tb.Cells() {
		copy(tb.Data[i*4:], Identity(3).Data[i*3:i*3+3])
		tb.Data[i*4+3] = 0.5
	}
	require.NoError(t, en.AddLUTRawAlpha("rgba", 3, tb.EncodeRaw()))

	px := []byte{10, 20, 30, 77}
	require.NoError(t, en.Process("rgb", "linear", "rgba8", 1, 1, px))
	assert.Equal(t, []byte{10, 20, 30, 77}, px)

	require.NoError(t, en.Process("rgba", "linear", "rgba8", 1, 1, px))
	assert.Equal(t, []byte{10, 20, 30, 128}, px)

	rgb := []byte{10, 20, 30}
	require.NoError(t, en.Process("rgba", "linear", "rgb8", 1, 1, rgb))
	assert.Equal(t, []byte{10, 20, 30}, rgb)
}

func TestProcessFormats(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "id", 5)

	bgra := []byte{1, 2, 3, 4, 250, 251, 252, 253}
	data := bytes.Clone(bgra)
	require.NoError(t, en.Process("id", "linear", "bgra8", 2, 1, data))
	assert.Equal(t, bgra, data)

	w := uint32(1023) | 512<<10 | 4<<20 | 2<<30
	ten := binary.LittleEndian.AppendUint32(nil, w)
	data = bytes.Clone(ten)
	require.NoError(t, en.Process("id", "tetrahedral", "rgb10a2", 1, 1, data))
	assert.Equal(t, ten, data)

	var sixteen []byte
	for _, v := range []uint16{0, 1000, 40000, 65535} {
		sixteen = binary.LittleEndian.AppendUint16(sixteen, v)
	}
	data = bytes.Clone(sixteen)
	require.NoError(t, en.Process("id", "linear", "rgba16", 1, 1, data))
	for i := range 4 {
		assert.InDelta(t, binary.LittleEndian.Uint16(sixteen[i*2:]), binary.LittleEndian.Uint16(data[i*2:]), 1)
	}
}

func TestProcessDomain(t *testing.T) {
	en := newTestEngine(t)
	tb := Identity(3)
	tb.DomainMax = [3]float32{2, 2, 2}
	require.NoError(t, en.Registry.Add("wide", tb))

	var in []byte
	for _, v := range []float32{1, 2, 4, 0.5} {
		in = binary.LittleEndian.AppendUint32(in, math.Float32bits(v))
	}
	require.NoError(t, en.Process("wide", "linear", "rgba32f", 1, 1, in))
	var got [4]float32
	for i := range 4 {
		got[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	// 1 is half way through the domain, 4 is clamped to the top
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 1, got[1], 1e-6)
	assert.InDelta(t, 1, got[2], 1e-6)
	assert.InDelta(t, 0.5, got[3], 1e-6)
}

func TestProcessBands(t *testing.T) {
	en, fo := newFakeEngine(t)
	require.NoError(t, en.AddLUT("grade", "cube", []byte(gradeCube)))
	whole := rampRGBA8(5, 9)
	require.NoError(t, en.Process("grade", "tetrahedral", "rgba8", 5, 9, whole))
	assert.Equal(t, int32(1), fo.last().images.Load())

	en.Config.MaxBandPixels = 12
	banded := rampRGBA8(5, 9)
	require.NoError(t, en.Process("grade", "tetrahedral", "rgba8", 5, 9, banded))
	assert.Equal(t, whole, banded)
	// 2 rows of 5 per band, 5 bands
	assert.Equal(t, int32(6), fo.last().images.Load())

	en.Config.MaxBandPixels = 4
	err := en.Process("grade", "linear", "rgba8", 5, 9, banded)
	assert.ErrorIs(t, err, ErrBufferSizeMismatch)
}

func TestProcessSubmitRetry(t *testing.T) {
	en, fo := newFakeEngine(t)
	addIdentity(t, en, "id", 3)
	src := rampRGBA8(4, 4)

	data := bytes.Clone(src)
	fo.last().submitFails.Store(2)
	require.NoError(t, en.Process("id", "linear", "rgba8", 4, 4, data))
	assert.Equal(t, src, data)
	assert.Equal(t, int32(3), fo.last().executes.Load())

	data = rampRGBA8(4, 4)
	data[0] = 99
	before := bytes.Clone(data)
	fo.last().submitFails.Store(3)
	err := en.Process("id", "linear", "rgba8", 4, 4, data)
	assert.Equal(t, DeviceLost, StatusOf(err))
	assert.Equal(t, before, data)
}

func TestProcessDeviceLost(t *testing.T) {
	en, fo := newFakeEngine(t)
	addIdentity(t, en, "id", 3)
	require.Len(t, fo.devices, 1)
	first := fo.last()
	assert.Equal(t, int32(1), first.uploads.Load())

	src := rampRGBA8(3, 3)
	data := bytes.Clone(src)
	first.lost.Store(true)
	err := en.Process("id", "linear", "rgba8", 3, 3, data)
	assert.Equal(t, DeviceLost, StatusOf(err))
	assert.Equal(t, src, data)
	assert.True(t, first.released.Load())

	// the next call opens a new device and uploads the table again
	require.NoError(t, en.Process("id", "linear", "rgba8", 3, 3, data))
	require.Len(t, fo.devices, 2)
	assert.Equal(t, int32(1), fo.last().uploads.Load())
	assert.Equal(t, src, data)
	assert.Equal(t, uint64(2), en.Context.Generation())

	require.NoError(t, en.Process("id", "linear", "rgba8", 3, 3, data))
	assert.Equal(t, int32(1), fo.last().uploads.Load())
	assert.Equal(t, []string{"id"}, en.Registry.Names())
}

func TestDeviceUnavailable(t *testing.T) {
	fo := &fakeOpener{err: errors.New("no adapter")}
	en := NewEngine(testConfig(), fo.open)
	err := en.AddLUTRaw("id", 2, Identity(2).EncodeRaw())
	assert.Equal(t, DeviceUnavailable, StatusOf(err))
	err = en.AddLUTRaw("id", 2, Identity(2).EncodeRaw())
	assert.Equal(t, DeviceUnavailable, StatusOf(err))
	assert.Equal(t, 1, fo.opens)
	assert.Equal(t, 0, en.Registry.Len())
}

func TestAddLUT(t *testing.T) {
	en := newTestEngine(t)
	err := en.AddLUT("x", "3dl", []byte(gradeCube))
	assert.Equal(t, UnsupportedFormat, StatusOf(err))

	err = en.AddLUT("x", "cube", []byte("LUT_3D_SIZE 2\n0 0 0\n"))
	assert.Equal(t, ParseError, StatusOf(err))
	assert.Equal(t, 0, en.Registry.Len())

	require.NoError(t, en.AddLUT("x", "CUBE", []byte(gradeCube)))
	info, err := en.Registry.Info("x")
	require.NoError(t, err)
	assert.Equal(t, "swap", info.Title)
	assert.Equal(t, 2, info.Dimension)

	require.NoError(t, en.DeleteLUT("x"))
	assert.Equal(t, NotFound, StatusOf(en.DeleteLUT("x")))
}

func TestProcessConcurrent(t *testing.T) {
	en := newTestEngine(t)
	require.NoError(t, en.AddLUT("grade", "cube", []byte(gradeCube)))
	want := rampRGBA8(8, 8)
	require.NoError(t, en.Process("grade", "tetrahedral", "rgba8", 8, 8, want))

	var eg errgroup.Group
	for range 16 {
		eg.Go(func() error {
			data := rampRGBA8(8, 8)
			if err := en.Process("grade", "tetrahedral", "rgba8", 8, 8, data); err != nil {
				return err
			}
			if !bytes.Equal(want, data) {
				return errors.New("output differs")
			}
			return nil
		})
		eg.Go(func() error {
			err := en.DeleteLUT("other")
			if StatusOf(err) != NotFound {
				return err
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

func TestRemoveWhileProcessing(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "id", 3)

	var eg errgroup.Group
	stop := make(chan struct{})
	for range 4 {
		eg.Go(func() error {
			for {
				select {
				case <-stop:
					return nil
				default:
				}
				data := rampRGBA8(4, 4)
				err := en.Process("id", "linear", "rgba8", 4, 4, data)
				switch StatusOf(err) {
				case OK:
					if !bytes.Equal(rampRGBA8(4, 4), data) {
						return errors.New("corrupt output")
					}
				case NotFound:
				default:
					return err
				}
			}
		})
	}
	var removed bool
	for !removed {
		err := en.DeleteLUT("id")
		switch StatusOf(err) {
		case OK:
			removed = true
		case EntryBusy:
		default:
			t.Fatal(err)
		}
	}
	close(stop)
	require.NoError(t, eg.Wait())
	assert.Equal(t, 0, en.Registry.Len())
}

func TestProcessImage(t *testing.T) {
	en := newTestEngine(t)
	require.NoError(t, en.AddLUT("grade", "cube", []byte(gradeCube)))

	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := range 4 {
		for x := range 6 {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 40), uint8(y * 60), 200, 255})
		}
	}
	ref := imagex.CloneAsRGBA(img)
	require.NoError(t, en.ProcessImage("grade", "linear", ref))
	c := ref.RGBAAt(5, 0)
	// red and blue swap, scaled by 0.8
	assert.True(t, imagex.CompareColors(color.RGBA{160, 0, 160, 255}, c, 1), "%v", c)

	sub := img.SubImage(image.Rect(2, 1, 5, 3)).(*image.RGBA)
	require.NoError(t, en.ProcessImage("grade", "linear", sub))
	assert.Equal(t, ref.RGBAAt(3, 2), img.RGBAAt(3, 2))
	assert.Equal(t, color.RGBA{0, 0, 200, 255}, img.RGBAAt(0, 0), "outside the sub image")
}

func TestProcessFloat(t *testing.T) {
	en := newTestEngine(t)
	addIdentity(t, en, "id", 3)
	pix := []float32{0.25, 0.5, 0.75, 1, 2, -1, 0.1, 0.3}
	require.NoError(t, en.ProcessFloat("id", "tetrahedral", 2, 1, pix))
	want := []float32{0.25, 0.5, 0.75, 1, 1, 0, 0.1, 0.3}
	for i := range want {
		assert.InDelta(t, want[i], pix[i], 1e-6)
	}
	assert.Equal(t, BufferSizeMismatch, StatusOf(en.ProcessFloat("id", "linear", 3, 1, pix)))
}

func TestEngineTable(t *testing.T) {
	en := newTestEngine(t)
	tb := Identity(3)
	require.NoError(t, en.AddTable("t", tb))
	got, err := en.Table("t")
	require.NoError(t, err)
	assert.Same(t, tb, got)
	assert.NoError(t, en.DeleteLUT("t"), "reference released")
	_, err = en.Table("t")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, en.AddTable("t", nil), ErrInvalidArgument)
}
