// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"strconv"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/lut/cube"
)

// Errors returned by the registry, the engine and devices. They are
// wrapped with context, so test for them with [errors.Is] or map them
// with [StatusOf].
var (
	ErrDuplicateName          = errors.New("lut: duplicate name")
	ErrNotFound               = errors.New("lut: not found")
	ErrEntryBusy              = errors.New("lut: entry busy")
	ErrParse                  = errors.New("lut: parse error")
	ErrDimensionMismatch      = errors.New("lut: dimension mismatch")
	ErrInvalidValue           = errors.New("lut: invalid value")
	ErrBufferSizeMismatch     = errors.New("lut: buffer size mismatch")
	ErrUnsupportedSampler     = errors.New("lut: unsupported sampler")
	ErrUnsupportedPixelFormat = errors.New("lut: unsupported pixel format")
	ErrDeviceUnavailable      = errors.New("lut: device unavailable")
	ErrDeviceLost             = errors.New("lut: device lost")
	ErrUnsupportedFormat      = errors.New("lut: unsupported format")
	ErrInvalidArgument        = errors.New("lut: invalid argument")

	// ErrSubmit is returned by a [Device] when queue submission failed
	// in a way that may succeed on retry.
	ErrSubmit = errors.New("lut: queue submit failed")
)

// Status is the numeric result code used across the C boundary.
// The values are stable.
type Status int32

const (
	OK Status = iota
	DuplicateName
	NotFound
	EntryBusy
	ParseError
	DimensionMismatch
	InvalidValue
	BufferSizeMismatch
	UnsupportedSampler
	UnsupportedPixelFormat
	DeviceUnavailable
	DeviceLost
	UnsupportedFormat
	InvalidArgument
	Internal
)

var statusStrings = [...]string{
	OK:                     "ok",
	DuplicateName:          "duplicate name",
	NotFound:               "not found",
	EntryBusy:              "entry busy",
	ParseError:             "parse error",
	DimensionMismatch:      "dimension mismatch",
	InvalidValue:           "invalid value",
	BufferSizeMismatch:     "buffer size mismatch",
	UnsupportedSampler:     "unsupported sampler",
	UnsupportedPixelFormat: "unsupported pixel format",
	DeviceUnavailable:      "device unavailable",
	DeviceLost:             "device lost",
	UnsupportedFormat:      "unsupported format",
	InvalidArgument:        "invalid argument",
	Internal:               "internal error",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusStrings) {
		return statusStrings[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

var statusErrors = []struct {
	err    error
	status Status
}{
	{ErrDuplicateName, DuplicateName},
	{ErrNotFound, NotFound},
	{ErrEntryBusy, EntryBusy},
	{ErrParse, ParseError},
	{ErrDimensionMismatch, DimensionMismatch},
	{ErrInvalidValue, InvalidValue},
	{ErrBufferSizeMismatch, BufferSizeMismatch},
	{ErrUnsupportedSampler, UnsupportedSampler},
	{ErrUnsupportedPixelFormat, UnsupportedPixelFormat},
	{ErrDeviceUnavailable, DeviceUnavailable},
	{ErrDeviceLost, DeviceLost},
	{ErrSubmit, DeviceLost},
	{ErrUnsupportedFormat, UnsupportedFormat},
	{ErrInvalidArgument, InvalidArgument},
}

// StatusOf returns the status code for err. A nil error is [OK], and an
// error that wraps none of the package errors is [Internal].
// A [*cube.ParseError] maps to [ParseError].
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var pe *cube.ParseError
	if errors.As(err, &pe) {
		return ParseError
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	return Internal
}
