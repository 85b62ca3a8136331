// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lut applies 3D lookup tables to image files.
package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/logx"
	"cogentcore.org/core/cli"
	"cogentcore.org/lut/cube"
	"cogentcore.org/lut/gpu"
	"cogentcore.org/lut/lut"
	"cogentcore.org/lut/lutdir"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/sync/errgroup"
)

// Config is the configuration information for the lut cli.
type Config struct {

	// LUT is the .cube file to apply or describe.
	LUT string `flag:"l,lut"`

	// Inputs are the images to transform.
	Inputs []string `flag:"i,input"`

	// Output is the output image for a single input, and otherwise
	// the output directory.
	Output string `flag:"o,output"`

	// Sampler is nearest, linear or tetrahedral.
	Sampler string `flag:"s,sampler" default:"linear"`

	// Mix is the opacity of the transformed image over the original,
	// from 0 to 1.
	Mix float64 `flag:"m,mix" default:"1"`

	// Size is the number of grid points per axis of an identity table.
	Size int `flag:"n,size" default:"33"`

	// Dir is the directory of tables to watch.
	Dir string `flag:"d,dir"`

	// Jobs is the number of images processed at once.
	Jobs int `flag:"j,jobs" default:"4"`

	// Backend overrides the backend of the engine settings.
	Backend string `flag:"b,backend"`

	// Settings is an optional TOML or YAML file with the engine settings.
	Settings string `flag:"settings"`
}

func main() {
	opts := cli.DefaultOptions("lut", "Apply 3D lookup tables to images.")
	cli.Run(opts, &Config{}, Apply, Identity, Info, Watch)
}

// setLogging directs slog to stderr at the level set by the
// verbose and quiet flags.
func setLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logx.UserLevel})))
}

// newEngine opens the engine described by the settings file and backend.
func (c *Config) newEngine() (*lut.Engine, error) {
	cfg := lut.DefaultConfig()
	if c.Settings != "" {
		var err error
		cfg, err = lut.OpenConfig(c.Settings)
		if err != nil {
			return nil, err
		}
	}
	if c.Backend != "" {
		cfg.Backend = c.Backend
	}
	return gpu.NewEngine(cfg)
}

// outputs returns the output file of each input.
func (c *Config) outputs() ([]string, error) {
	if len(c.Inputs) == 0 {
		return nil, fmt.Errorf("lut apply: no input images: %w", lut.ErrInvalidArgument)
	}
	if c.Output == "" {
		return nil, fmt.Errorf("lut apply: no output: %w", lut.ErrInvalidArgument)
	}
	st, err := os.Stat(c.Output)
	if len(c.Inputs) == 1 && (err != nil || !st.IsDir()) {
		return []string{c.Output}, nil
	}
	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return nil, err
	}
	outs := make([]string, len(c.Inputs))
	for i, in := range c.Inputs {
		outs[i] = filepath.Join(c.Output, filepath.Base(in))
	}
	return outs, nil
}

// Apply transforms each input image through the table and saves it.
func Apply(c *Config) error {
	setLogging()
	outs, err := c.outputs()
	if err != nil {
		return err
	}
	en, err := c.newEngine()
	if err != nil {
		return err
	}
	defer en.Release()
	name, err := addFile(en, c.LUT)
	if err != nil {
		return err
	}
	var g errgroup.Group
	g.SetLimit(max(c.Jobs, 1))
	for i, in := range c.Inputs {
		g.Go(func() error {
			return c.render(en, name, in, outs[i])
		})
	}
	return g.Wait()
}

// addFile adds the .cube file to en under its base name.
func addFile(en *lut.Engine, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("lut: no table file: %w", lut.ErrInvalidArgument)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	name := lutdir.Name(filename)
	return name, en.AddLUT(name, "cube", data)
}

// render transforms the image file in through the named table into out.
func (c *Config) render(en *lut.Engine, name, in, out string) error {
	src, err := openImage(in)
	if err != nil {
		return err
	}
	rgba := clone.AsRGBA(src)
	if err := en.ProcessImage(name, c.Sampler, rgba); err != nil {
		return fmt.Errorf("lut %s: %w", in, err)
	}
	var res image.Image = rgba
	if c.Mix < 1 {
		res = blend.Opacity(src, rgba, max(c.Mix, 0))
	}
	if err := saveImage(out, res); err != nil {
		return err
	}
	slog.Info("lut", "Input", in, "Output", out, "LUT", name)
	return nil
}

// Identity writes an identity table of the given size to the output file.
func Identity(c *Config) error {
	setLogging()
	if c.Output == "" {
		return fmt.Errorf("lut identity: no output: %w", lut.ErrInvalidArgument)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := cube.Write(f, cube.Identity(c.Size)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Info prints the title, size, domain and value range of the table.
func Info(c *Config) error {
	setLogging()
	f, err := os.Open(c.LUT)
	if err != nil {
		return err
	}
	defer f.Close()
	l, err := cube.Parse(f)
	if err != nil {
		return fmt.Errorf("lut info %s: %w", c.LUT, err)
	}
	fmt.Print(describe(lut.FromCube(l)))
	return nil
}

func describe(tb *lut.Table) string {
	lo, hi := tb.Range()
	return fmt.Sprintf("Title:  %s\nSize:   %d\nDomain: %v - %v\nRange:  %v - %v\n", tb.Title, tb.Dimension, tb.DomainMin, tb.DomainMax, lo[:3], hi[:3])
}

// Watch loads the tables of the directory and renders the input image
// through each into the output directory, again whenever a table changes,
// until interrupted.
func Watch(c *Config) error {
	setLogging()
	if len(c.Inputs) != 1 || c.Output == "" {
		return fmt.Errorf("lut watch: need one input and an output directory: %w", lut.ErrInvalidArgument)
	}
	if err := os.MkdirAll(c.Output, 0o755); err != nil {
		return err
	}
	en, err := c.newEngine()
	if err != nil {
		return err
	}
	defer en.Release()
	names, err := lutdir.Load(en, c.Dir)
	errors.Log(err)
	preview := func(name string) error {
		return c.render(en, name, c.Inputs[0], filepath.Join(c.Output, name+".png"))
	}
	for _, name := range names {
		errors.Log(preview(name))
	}
	w := lutdir.NewWatcher(en, c.Dir)
	w.Changed = func(name string, err error) {
		if err == nil && slices.Contains(en.Registry.Names(), name) {
			errors.Log(preview(name))
		}
	}
	if err := w.Start(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return w.Close()
}
