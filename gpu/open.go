// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"cogentcore.org/lut/lut"
)

// Open opens the device named by cfg.Backend.
func Open(cfg lut.Config) (lut.Device, error) {
	switch cfg.Backend {
	case "software":
		return lut.NewSoftwareDevice(cfg.Workers), nil
	case "", "gpu":
		return NewLUTDevice(cfg)
	}
	return nil, fmt.Errorf("gpu.Open: backend %q: %w", cfg.Backend, lut.ErrInvalidArgument)
}

// Opener returns a [lut.Opener] for [Open] with cfg.
func Opener(cfg lut.Config) lut.Opener {
	return func() (lut.Device, error) {
		return Open(cfg)
	}
}

// NewEngine returns an engine on the device named by cfg.Backend,
// after validating cfg. The device is opened on first use.
func NewEngine(cfg lut.Config) (*lut.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return lut.NewEngine(cfg, Opener(cfg)), nil
}
