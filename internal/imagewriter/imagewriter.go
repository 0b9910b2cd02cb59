// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package imagewriter encodes rendered framebuffers to disk. The
// framebuffer layout matches what the renderer produces: tightly packed
// 8-bit RGBA rows, top to bottom.
package imagewriter

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Framebuffer is a width*height*4 RGBA pixel buffer.
type Framebuffer struct {
	Width, Height int
	Pix           []uint8
}

// NewFramebuffer returns a zeroed framebuffer of the given size.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// SetRGB stores an opaque pixel from [0,1] float components, clamped.
func (f *Framebuffer) SetRGB(x, y int, r, g, b float32) {
	p := f.Pix[(y*f.Width+x)*4:]
	p[0] = to8(r)
	p[1] = to8(g)
	p[2] = to8(b)
	p[3] = 0xff
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v * 255)
	}
}

// Image returns f as an image.RGBA sharing f's pixel storage.
func (f *Framebuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// WriteFile encodes f to name, picking the format from the extension:
// .png, .bmp, or .ppm. An unrecognized extension is an error.
func WriteFile(name string, f *Framebuffer) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("imagewriter: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("imagewriter: %w", cerr)
		}
	}()

	w := bufio.NewWriter(file)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		err = png.Encode(w, f.Image())
	case ".bmp":
		err = bmp.Encode(w, f.Image())
	case ".ppm":
		err = encodePPM(w, f)
	default:
		return fmt.Errorf("imagewriter: unsupported extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("imagewriter: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("imagewriter: %w", err)
	}
	return nil
}

// encodePPM writes the binary (P6) variant; alpha is dropped.
func encodePPM(w *bufio.Writer, f *Framebuffer) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", f.Width, f.Height); err != nil {
		return err
	}
	for i := 0; i < len(f.Pix); i += 4 {
		if _, err := w.Write(f.Pix[i : i+3]); err != nil {
			return err
		}
	}
	return nil
}
