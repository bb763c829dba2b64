package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - WebSerial (for TinyGo WASM builds)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// StopBits selects the number of stop bits a Config requests. DMX512's
// physical layer (ANSI E1.11) is 8N2 — two stop bits — unlike the 8N1 most
// USB-serial defaults assume, so this is a Config field rather than a
// hardcoded constant: the host build also talks to the MCU telemetry link,
// which runs 8N1.
type StopBits int

const (
	Stop1 StopBits = iota
	Stop2
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0" for an RS-485 adapter, "/dev/ttyACM0"
	// for the telemetry link)
	Device string

	// Baud rate. 250000 for a direct DMX/RDM RS-485 link (the rate ANSI
	// E1.11 fixes for the line itself); USB CDC telemetry links ignore
	// this value entirely since the virtual UART has no real bit clock.
	Baud int

	// StopBits is Stop2 for a DMX/RDM RS-485 link, Stop1 for the telemetry
	// link.
	StopBits StopBits

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for a direct DMX/RDM line: 250000
// baud, 8 data bits, no parity, 2 stop bits.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		StopBits:    Stop2,
		ReadTimeout: 100,
	}
}

// TelemetryConfig returns the configuration for the MCU telemetry link
// (USB CDC on rp2040/rp2350, a pty bridged to dmxhost's stdin/stdout on
// the host build): 8N1,
// since this is not a DMX/RDM line and only the byte stream matters.
func TelemetryConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		StopBits:    Stop1,
		ReadTimeout: 100,
	}
}
