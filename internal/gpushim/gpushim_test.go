// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpushim

import "testing"

func TestRegister(t *testing.T) {
	if _, err := Open(); err != ErrNoDriver {
		t.Fatalf("Open:\nhave %v\nwant ErrNoDriver", err)
	}

	drv := NewSoft()
	Register(drv)
	defer func() { drivers = nil }()

	if n := len(Drivers()); n != 1 {
		t.Fatalf("len(Drivers):\nhave %d\nwant 1", n)
	}

	// Re-registering a same-named driver replaces, not appends.
	Register(NewSoft())
	if n := len(Drivers()); n != 1 {
		t.Fatalf("len(Drivers) after re-register:\nhave %d\nwant 1", n)
	}

	dev, err := Open()
	if err != nil {
		t.Fatalf("Open:\nhave %v\nwant nil", err)
	}
	if dev == nil {
		t.Fatal("Open: nil Device")
	}
}

func TestSoftPresent(t *testing.T) {
	drv := NewSoft()
	dev, err := drv.Open()
	if err != nil {
		t.Fatalf("Soft.Open:\nhave %v\nwant nil", err)
	}

	if _, _, _, _, ok := Frame(dev); ok {
		t.Fatal("Frame: frame available before any Present")
	}

	pix := []uint8{1, 2, 3, 255, 4, 5, 6, 255}
	if err := dev.Present(pix, 2, 1); err != nil {
		t.Fatalf("Present:\nhave %v\nwant nil", err)
	}

	got, w, h, count, ok := Frame(dev)
	if !ok || w != 2 || h != 1 || count != 1 {
		t.Fatalf("Frame:\nhave %dx%d, count %d, %t\nwant 2x1, count 1, true", w, h, count, ok)
	}
	if len(got) != len(pix) || got[4] != 4 {
		t.Fatalf("Frame pixels:\nhave %v\nwant %v", got, pix)
	}

	// The device copies; mutating the caller's slice must not leak in.
	pix[0] = 99
	got, _, _, _, _ = Frame(dev)
	if got[0] != 1 {
		t.Fatal("Present: retained a reference to the caller's slice")
	}

	if err := dev.Present(pix, 2, 1); err != nil {
		t.Fatalf("Present:\nhave %v\nwant nil", err)
	}
	if _, _, _, count, _ = Frame(dev); count != 2 {
		t.Fatalf("Frame count:\nhave %d\nwant 2", count)
	}

	dev2, err := drv.Open()
	if err != nil || dev2 != dev {
		t.Fatal("Soft.Open: second Open did not return the same device")
	}

	drv.Close()
	if err := dev.Present(pix, 2, 1); err != ErrClosed {
		t.Fatalf("Present after Close:\nhave %v\nwant ErrClosed", err)
	}
}
