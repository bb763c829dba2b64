//go:build !windows && !wasm

// Package hal provides a real-hardware implementation of the driver
// package's HAL interfaces for a desktop or single-board host talking to an
// RS-485 transceiver through a USB-serial adapter, rather than the fake
// HAL the driver package's own tests use.
package hal

import (
	"time"

	"github.com/kfriesth/go-dmx512/hal"
)

// Clock implements hal.Clock over the host's monotonic wall clock.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock zeroed at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NowUS implements hal.Clock.
func (c *Clock) NowUS() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

var _ hal.Clock = (*Clock)(nil)
