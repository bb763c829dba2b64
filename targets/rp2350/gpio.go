//go:build tinygo && rp2350

package main

import (
	"github.com/kfriesth/go-dmx512/hal"
	"machine"
)

// RPGPIODriver implements hal.GPIODriver over TinyGo's machine package.
// The line driver only ever drives one pin (the RS-485 direction select),
// but the map keeps the same shape as a driver that might one day manage
// more than one.
type RPGPIODriver struct {
	configured map[hal.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates an RP2350 GPIO driver.
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{configured: make(map[hal.GPIOPin]machine.Pin)}
}

func (d *RPGPIODriver) ConfigureOutput(pin hal.GPIOPin) error {
	if _, exists := d.configured[pin]; exists {
		return nil
	}
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configured[pin] = mp
	return nil
}

func (d *RPGPIODriver) SetPin(pin hal.GPIOPin, value bool) error {
	mp, exists := d.configured[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		mp = d.configured[pin]
	}
	mp.Set(value)
	return nil
}

func (d *RPGPIODriver) GetPin(pin hal.GPIOPin) (bool, error) {
	mp, exists := d.configured[pin]
	if !exists {
		return false, nil
	}
	return mp.Get(), nil
}
