// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpushim

import "sync"

// Soft is the software presentation driver. It retains the latest
// presented frame so a window layer (or a test) can fetch it at its own
// cadence.
type Soft struct {
	mu   sync.Mutex
	dev  *softDevice
	name string
}

// NewSoft returns an unopened software driver.
func NewSoft() *Soft { return &Soft{name: "soft"} }

// Name returns the name of the driver.
func (s *Soft) Name() string { return s.name }

// Open initializes the driver.
func (s *Soft) Open() (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		s.dev = &softDevice{}
	}
	return s.dev, nil
}

// Close deinitializes the driver. The device handed out by Open fails
// all further presents.
func (s *Soft) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev != nil {
		s.dev.close()
		s.dev = nil
	}
}

// softDevice keeps its own copy of the latest presented frame behind a
// mutex so Present and Frame may be called concurrently.
type softDevice struct {
	mu     sync.Mutex
	closed bool
	pix    []uint8
	w, h   int
	count  uint64
}

func (d *softDevice) Present(pix []uint8, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	need := width * height * 4
	if cap(d.pix) < need {
		d.pix = make([]uint8, need)
	}
	d.pix = d.pix[:need]
	copy(d.pix, pix)
	d.w, d.h = width, height
	d.count++
	return nil
}

// Frame returns a copy of the most recently presented frame, or ok
// false if nothing was presented yet. count increases with every
// Present, so callers can skip re-reading an unchanged frame.
func (d *softDevice) Frame() (pix []uint8, width, height int, count uint64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.count == 0 {
		return nil, 0, 0, 0, false
	}
	out := make([]uint8, len(d.pix))
	copy(out, d.pix)
	return out, d.w, d.h, d.count, true
}

func (d *softDevice) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Frame is a convenience for fetching the latest frame out of a Device
// known to be the software implementation.
func Frame(dev Device) (pix []uint8, width, height int, count uint64, ok bool) {
	d, isSoft := dev.(*softDevice)
	if !isSoft {
		return nil, 0, 0, 0, false
	}
	return d.Frame()
}
