// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Command rtk-trace renders a Wavefront OBJ file with the rtk path
// tracer sample.
//
// Usage:
//
//	rtk-trace [options] <input.obj> <output.{png,bmp,ppm}>
//
// Examples:
//
//	rtk-trace bunny.obj bunny.png
//	rtk-trace -samples 16 -camera "0 1 5 0 0 -1" bunny.obj bunny.png
//	rtk-trace -preview bunny.obj bunny.png
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gviegas/rtk"
	"github.com/gviegas/rtk/examples/pathtracer"
	"github.com/gviegas/rtk/internal/imagewriter"
	"github.com/gviegas/rtk/internal/loader"
	"github.com/gviegas/rtk/linear"
)

var (
	samples = flag.Int("samples", 1, "paths traced per pixel")
	camera  = flag.String("camera", "0 0 5 0 0 -1", "camera as \"x y z dx dy dz\"")
	size    = flag.String("size", "1280x720", "output size as WxH")
	bounces = flag.Int("bounces", 2, "diffuse bounces per path")
	seed    = flag.Int64("seed", 1, "random seed")
	preview = flag.Bool("preview", false, "show the render in a window before writing it")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rtk-trace: ")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		log.Print("need <input> and <output> arguments")
		usage()
		os.Exit(1)
	}
	input, output := flag.Arg(0), flag.Arg(1)

	cam, err := parseCamera(*camera)
	if err != nil {
		log.Fatal(err)
	}
	width, height, err := parseSize(*size)
	if err != nil {
		log.Fatal(err)
	}

	mesh, err := loader.LoadFile(input)
	if err != nil {
		log.Fatal(err)
	}

	scene := rtk.Build(&rtk.SceneDesc{Meshes: []rtk.MeshDesc{*mesh}})

	opt := pathtracer.Options{
		Width:   width,
		Height:  height,
		Samples: *samples,
		Bounces: *bounces,
		Seed:    *seed,
	}
	r := pathtracer.New(scene, cam, opt)
	fb := imagewriter.NewFramebuffer(width, height)

	if *preview {
		if err := runPreview(r, fb, width, height); err != nil {
			log.Fatal(err)
		}
	} else {
		r.Render(fb)
	}

	if err := imagewriter.WriteFile(output, fb); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Rendered %s to %s (%dx%d, %d spp)\n", input, output, width, height, opt.Samples)
}

// parseCamera parses "x y z dx dy dz" (space- or comma-separated).
func parseCamera(s string) (pathtracer.Camera, error) {
	var cam pathtracer.Camera
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 6 {
		return cam, fmt.Errorf("camera %q: need 6 components", s)
	}
	var v [6]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return cam, fmt.Errorf("camera %q: %w", s, err)
		}
		v[i] = float32(x)
	}
	cam.Pos = linear.V3{v[0], v[1], v[2]}
	cam.Dir = linear.V3{v[3], v[4], v[5]}
	if cam.Dir == (linear.V3{}) {
		return cam, fmt.Errorf("camera %q: zero view direction", s)
	}
	return cam, nil
}

func parseSize(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if width < 1 || height < 1 {
		return 0, 0, fmt.Errorf("size %q: not positive", s)
	}
	return width, height, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: rtk-trace [options] <input.obj> <output.{png,bmp,ppm}>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
