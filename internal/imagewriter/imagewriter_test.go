// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package imagewriter

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestSetRGB(t *testing.T) {
	f := NewFramebuffer(2, 2)
	f.SetRGB(1, 0, 0.5, -1, 2)
	p := f.Pix[4:8]
	if p[0] != 127 || p[1] != 0 || p[2] != 0xff || p[3] != 0xff {
		t.Fatalf("SetRGB:\nhave %v\nwant [127 0 255 255]", p)
	}
}

func TestWriteFile(t *testing.T) {
	f := NewFramebuffer(3, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			f.SetRGB(x, y, float32(x)/2, float32(y), 0.25)
		}
	}
	dir := t.TempDir()

	t.Run("png", func(t *testing.T) {
		name := filepath.Join(dir, "out.png")
		if err := WriteFile(name, f); err != nil {
			t.Fatalf("WriteFile:\nhave %v\nwant nil", err)
		}
		file, err := os.Open(name)
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		img, err := png.Decode(file)
		if err != nil {
			t.Fatalf("png.Decode:\nhave %v\nwant nil", err)
		}
		if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
			t.Fatalf("decoded size:\nhave %dx%d\nwant 3x2", b.Dx(), b.Dy())
		}
		r, g, b, _ := img.At(2, 1).RGBA()
		if r>>8 != 0xff || g>>8 != 0xff || b>>8 != 63 {
			t.Fatalf("pixel (2,1):\nhave %d %d %d\nwant 255 255 63", r>>8, g>>8, b>>8)
		}
	})

	t.Run("bmp", func(t *testing.T) {
		name := filepath.Join(dir, "out.bmp")
		if err := WriteFile(name, f); err != nil {
			t.Fatalf("WriteFile:\nhave %v\nwant nil", err)
		}
		file, err := os.Open(name)
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		img, err := bmp.Decode(file)
		if err != nil {
			t.Fatalf("bmp.Decode:\nhave %v\nwant nil", err)
		}
		if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
			t.Fatalf("decoded size:\nhave %dx%d\nwant 3x2", b.Dx(), b.Dy())
		}
	})

	t.Run("ppm", func(t *testing.T) {
		name := filepath.Join(dir, "out.ppm")
		if err := WriteFile(name, f); err != nil {
			t.Fatalf("WriteFile:\nhave %v\nwant nil", err)
		}
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		want := "P6\n3 2\n255\n"
		if string(data[:len(want)]) != want {
			t.Fatalf("PPM header:\nhave %q\nwant %q", data[:len(want)], want)
		}
		if len(data) != len(want)+3*2*3 {
			t.Fatalf("PPM size:\nhave %d\nwant %d", len(data), len(want)+18)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := WriteFile(filepath.Join(dir, "out.tiff"), f); err == nil {
			t.Fatal("WriteFile: want non-nil error for .tiff")
		}
	})
}
