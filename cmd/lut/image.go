// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cogentcore.org/core/base/iox/imagex"
	"cogentcore.org/lut/lut"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/h2non/filetype"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// headerSize is the number of bytes sniffed to detect the file type.
const headerSize = 262

// openImage decodes the image file, after checking that it is an image.
func openImage(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	f.Close()
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if !filetype.IsImage(head[:n]) {
		return nil, fmt.Errorf("lut: %s is not an image: %w", filename, lut.ErrUnsupportedFormat)
	}
	img, _, err := imagex.Open(filename)
	return img, err
}

// encoder returns the encoder for the extension of filename.
func encoder(filename string) (imgio.Encoder, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(95), nil
	case ".bmp":
		return imgio.BMPEncoder(), nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, fmt.Errorf("lut: cannot save %s: %w", filename, lut.ErrUnsupportedFormat)
}

// saveImage encodes img into filename by its extension.
func saveImage(filename string, img image.Image) error {
	enc, err := encoder(filename)
	if err != nil {
		return err
	}
	return imgio.Save(filename, img, enc)
}
