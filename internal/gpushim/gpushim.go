// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package gpushim defines the small presentation surface the rtk viewer
// example draws through. It mirrors the shape of a real GPU driver
// boundary — a registry of named drivers, each opening a device that can
// present a framebuffer — while shipping only a software implementation,
// since rtk itself renders entirely on the CPU.
package gpushim

import (
	"errors"
	"sync"
)

// ErrNoDriver means that no driver was registered.
var ErrNoDriver = errors.New("gpushim: no driver registered")

// ErrClosed means that the device was closed and cannot present.
var ErrClosed = errors.New("gpushim: device closed")

// Driver is the interface that provides methods for loading and
// unloading an underlying presentation implementation.
type Driver interface {
	// Open initializes the driver. Further calls with the same
	// receiver return the same Device.
	Open() (Device, error)

	// Name returns the name of the driver.
	Name() string

	// Close deinitializes the driver.
	Close()
}

// Device is an open presentation device.
type Device interface {
	// Present hands one frame of tightly packed RGBA pixels to the
	// device. The device must consume pix before returning; callers
	// may reuse the slice immediately after.
	Present(pix []uint8, width, height int) error
}

// Register registers a Driver. Implementations are expected to call
// Register exactly once, from an init function. A driver with a name
// already registered replaces the previous one.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			return
		}
	}
	drivers = append(drivers, drv)
}

// Drivers returns the registered Drivers.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Open opens the first registered driver.
func Open() (Device, error) {
	mu.Lock()
	defer mu.Unlock()
	if len(drivers) == 0 {
		return nil, ErrNoDriver
	}
	return drivers[0].Open()
}

var (
	mu      sync.Mutex
	drivers []Driver
)
