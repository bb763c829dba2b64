//go:build tinygo && rp2040

package main

import (
	"machine"
)

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART brings up UART1 on GPIO4 (TX) / GPIO5 (RX) as a
// dedicated channel for driver.Driver's warning ring — kept separate
// from the USB CDC link so a drained warning never competes with
// telemetry framing for the same wire.
func InitDebugUART() {
	debugUART = machine.UART1

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO4,
		RX:       machine.GPIO5,
	})
	if err != nil {
		debugEnabled = false
		return
	}

	debugEnabled = true
	DebugPrintln("dmx512 debug uart up")
}

// DebugPrintln writes a pre-formatted warning line from DrainWarnings.
func DebugPrintln(s string) {
	if !debugEnabled || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
