//go:build tinygo && rp2350

package main

import (
	"machine"
)

// InitUSB brings up the USB CDC-ACM link the telemetry.Device pumps
// Klipper-style framed commands over. TinyGo sets up the USB descriptors;
// machine.Serial is the CDC endpoint on RP2350.
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// USBAvailable returns the number of bytes buffered for reading.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data, returning however much was accepted.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
