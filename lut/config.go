// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/reflectx"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config has the settings of an [Engine] and its device.
type Config struct {

	// Backend is the device to use: gpu or software.
	Backend string `default:"gpu" toml:"backend" yaml:"backend"`

	// MaxDimension is the largest accepted table dimension.
	// The device limit applies too.
	MaxDimension int `default:"256" toml:"max_dimension" yaml:"max_dimension"`

	// SubmitRetries is how many times a failed queue submission is
	// retried before the transform fails with [ErrDeviceLost].
	SubmitRetries int `default:"2" toml:"submit_retries" yaml:"submit_retries"`

	// PowerPreference selects the GPU adapter:
	// high-performance, low-power, or empty for no preference.
	PowerPreference string `default:"high-performance" toml:"power_preference" yaml:"power_preference"`

	// ForceFallbackAdapter requests a software GPU adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter" yaml:"force_fallback_adapter"`

	// ShaderFormat is the form the kernel is given to the GPU in:
	// wgsl, or spirv to compile it ahead of time.
	ShaderFormat string `default:"wgsl" toml:"shader_format" yaml:"shader_format"`

	// MaxBandPixels caps the pixels per device upload. 0 uses the
	// device limit.
	MaxBandPixels int `toml:"max_band_pixels" yaml:"max_band_pixels"`

	// Workers is the number of goroutines of the software device.
	// 0 uses GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`
}

// DefaultConfig returns a config with all defaults set.
func DefaultConfig() Config {
	var c Config
	errors.Log(reflectx.SetFromDefaultTags(&c))
	return c
}

// Validate checks the enumerated fields and ranges.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case "gpu", "software":
	default:
		errs = append(errs, fmt.Errorf("backend %q is not gpu or software", c.Backend))
	}
	switch c.PowerPreference {
	case "", "high-performance", "low-power":
	default:
		errs = append(errs, fmt.Errorf("power preference %q is not high-performance or low-power", c.PowerPreference))
	}
	switch c.ShaderFormat {
	case "wgsl", "spirv":
	default:
		errs = append(errs, fmt.Errorf("shader format %q is not wgsl or spirv", c.ShaderFormat))
	}
	if c.MaxDimension < MinDimension {
		errs = append(errs, fmt.Errorf("max dimension %d is below %d", c.MaxDimension, MinDimension))
	}
	counts := map[string]int{"submit_retries": c.SubmitRetries, "max_band_pixels": c.MaxBandPixels, "workers": c.Workers}
	for _, k := range []string{"submit_retries", "max_band_pixels", "workers"} {
		if counts[k] < 0 {
			errs = append(errs, fmt.Errorf("%s %d is negative", k, counts[k]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("lut.Config: %w: %w", ErrInvalidArgument, errors.Join(errs...))
	}
	return nil
}

// OpenConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over the
// defaults and validates the result.
func OpenConfig(filename string) (Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(filename)
	if err != nil {
		return c, err
	}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		err = toml.Unmarshal(b, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &c)
	default:
		err = fmt.Errorf("extension %q is not .toml, .yaml or .yml: %w", ext, ErrUnsupportedFormat)
	}
	if err != nil {
		return c, fmt.Errorf("lut.OpenConfig %s: %w", filename, err)
	}
	return c, c.Validate()
}
