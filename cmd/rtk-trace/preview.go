// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package main

import (
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/gviegas/rtk/examples/pathtracer"
	"github.com/gviegas/rtk/internal/gpushim"
	"github.com/gviegas/rtk/internal/imagewriter"
)

// runPreview renders fb row by row on a background goroutine while an
// interactive window reveals the finished rows. It returns once the
// render completes and the user closes the window (or presses Escape).
func runPreview(r *pathtracer.Renderer, fb *imagewriter.Framebuffer, width, height int) error {
	gpushim.Register(gpushim.NewSoft())
	dev, err := gpushim.Open()
	if err != nil {
		return err
	}

	g := &previewGame{
		dev:    dev,
		width:  width,
		height: height,
		shown:  make([]uint8, width*height*4),
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for y := 0; y < height; y++ {
			r.RenderRow(y, fb)
			dev.Present(fb.Pix, width, height)
			atomic.StoreInt32(&g.rendered, int32(y+1))
		}
		atomic.StoreInt32(&g.done, 1)
	}()

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("rtk-trace")
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	<-finished
	return nil
}

// previewGame is the ebiten shell around the in-progress render: a
// scanline sweep, eased by a tween, chases the renderer's progress so
// rows appear as a smooth wipe rather than popping in.
type previewGame struct {
	dev    gpushim.Device
	width  int
	height int

	rendered int32 // rows finished by the renderer (atomic)
	done     int32 // renderer finished (atomic)

	sweep  *gween.Tween
	target float32
	reveal float32

	frame      []uint8
	frameCount uint64
	shown      []uint8
	img        *ebiten.Image
}

func (g *previewGame) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		if atomic.LoadInt32(&g.done) != 0 {
			return ebiten.Termination
		}
	}

	rows := float32(atomic.LoadInt32(&g.rendered))
	if rows > g.target {
		g.target = rows
		g.sweep = gween.New(g.reveal, g.target, 0.4, ease.OutQuad)
	}
	if g.sweep != nil {
		v, fin := g.sweep.Update(1.0 / 60)
		g.reveal = v
		if fin {
			g.sweep = nil
		}
	}
	return nil
}

func (g *previewGame) Draw(screen *ebiten.Image) {
	pix, w, h, count, ok := gpushim.Frame(g.dev)
	if ok && count != g.frameCount && w == g.width && h == g.height {
		g.frame = pix
		g.frameCount = count
	}
	if g.frame == nil {
		return
	}

	revealRows := int(g.reveal)
	if revealRows > g.height {
		revealRows = g.height
	}
	copy(g.shown[:revealRows*g.width*4], g.frame[:revealRows*g.width*4])

	if g.img == nil {
		g.img = ebiten.NewImage(g.width, g.height)
	}
	g.img.WritePixels(g.shown)
	screen.DrawImage(g.img, nil)
}

func (g *previewGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
