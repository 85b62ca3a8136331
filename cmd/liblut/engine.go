// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/logx"
	"cogentcore.org/lut/cube"
	"cogentcore.org/lut/gpu"
	"cogentcore.org/lut/lut"
	"cogentcore.org/lut/lutdir"
)

var (
	engineOnce sync.Once
	theEngine  *lut.Engine
	engineErr  error
)

// engine returns the process wide engine, creating it on first use
// from the environment.
func engine() (*lut.Engine, error) {
	engineOnce.Do(func() {
		theEngine, engineErr = newEngine(os.Getenv)
	})
	return theEngine, engineErr
}

// newEngine configures logging and opens an engine from the settings file
// in LUT_CONFIG, with LUT_BACKEND and LUT_LOG_LEVEL applied over it.
// The device itself is opened on first use.
func newEngine(getenv func(string) string) (*lut.Engine, error) {
	if lv := getenv("LUT_LOG_LEVEL"); lv != "" {
		if err := logx.UserLevel.UnmarshalText([]byte(lv)); err != nil {
			return nil, fmt.Errorf("liblut LUT_LOG_LEVEL %q: %w", lv, lut.ErrInvalidArgument)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logx.UserLevel})))
	cfg := lut.DefaultConfig()
	if fn := getenv("LUT_CONFIG"); fn != "" {
		var err error
		cfg, err = lut.OpenConfig(fn)
		if errors.Log(err) != nil {
			return nil, err
		}
	}
	if b := getenv("LUT_BACKEND"); b != "" {
		cfg.Backend = b
	}
	en, err := gpu.NewEngine(cfg)
	if errors.Log(err) != nil {
		return nil, err
	}
	return en, nil
}

// call runs fn on the engine and returns the status of the result.
func call(fn func(en *lut.Engine) error) int32 {
	en, err := engine()
	if err != nil {
		return int32(lut.StatusOf(err))
	}
	err = fn(en)
	if err != nil {
		slog.Debug("liblut", "Status", lut.StatusOf(err).String(), "Error", err)
	}
	return int32(lut.StatusOf(err))
}

func addLUT(name, format string, data []byte) int32 {
	return call(func(en *lut.Engine) error { return en.AddLUT(name, format, data) })
}

// addLUTRaw rejects a dimension above [cube.MaxSize] before it reaches
// the engine.
func addLUTRaw(name string, dim uint32, raw []byte, hasAlpha bool) int32 {
	if dim > cube.MaxSize {
		return int32(lut.DimensionMismatch)
	}
	return call(func(en *lut.Engine) error {
		if hasAlpha {
			return en.AddLUTRawAlpha(name, int(dim), raw)
		}
		return en.AddLUTRaw(name, int(dim), raw)
	})
}

func deleteLUT(name string) int32 {
	return call(func(en *lut.Engine) error { return en.DeleteLUT(name) })
}

// processPixels rejects a width or height above [math.MaxInt32].
func processPixels(name, sampler, format string, width, height uint32, data []byte) int32 {
	if width > math.MaxInt32 || height > math.MaxInt32 {
		return int32(lut.InvalidArgument)
	}
	return call(func(en *lut.Engine) error { return en.Process(name, sampler, format, int(width), int(height), data) })
}

func loadDir(dir string) int32 {
	return call(func(en *lut.Engine) error {
		_, err := lutdir.Load(en, dir)
		return err
	})
}
