//go:build !windows && !wasm

// Command dmxhost runs the line driver directly against a real RS-485
// USB-serial adapter: the same driver.Driver state machines the tinygo
// targets run, wired to host/hal's real-hardware implementation of the
// UART/GPIO/timer/clock interfaces instead of a microcontroller's
// peripherals. Its telemetry link runs over stdin/stdout rather than a
// USB-CDC endpoint, so a bench operator can drive it either by piping a
// pty bridged to host/mcu.MCU, or by hand with gopper-host pointed at
// that pty.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kfriesth/go-dmx512/driver"
	"github.com/kfriesth/go-dmx512/hal"
	hosthal "github.com/kfriesth/go-dmx512/host/hal"
	"github.com/kfriesth/go-dmx512/protocol"
	"github.com/kfriesth/go-dmx512/telemetry"
)

var device = flag.String("device", "/dev/ttyUSB0", "RS-485 USB-serial adapter device path")

func main() {
	flag.Parse()

	uart, err := hosthal.Open(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer uart.Close()

	clock := hosthal.NewClock()
	drv := driver.New(driver.Config{
		Clock:     clock,
		UART:      uart,
		GPIO:      hosthal.NewGPIO(uart),
		Interrupt: hal.NewMutexInterruptController(),
		SlotTimer: hosthal.NewTimer(clock),
		PPSTimer:  hosthal.NewTimer(clock),
		TxTimer:   hosthal.NewTimer(clock),
		DirPin:    1,
	})
	if err := drv.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "error: driver init: %v\n", err)
		os.Exit(1)
	}
	drv.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })

	reg := telemetry.NewRegistry()
	output := protocol.NewScratchOutput()
	dev := telemetry.NewDevice(reg, output, 256)
	endpoint := telemetry.NewEndpoint(reg, drv, dev)
	endpoint.SetDictionary(telemetry.NewDictionary(reg, "dmx512-host-1"))

	stdout := bufio.NewWriter(os.Stdout)
	dev.SetFlushCallback(func() {
		if result := output.Result(); len(result) > 0 {
			stdout.Write(result)
			stdout.Flush()
			output.Reset()
		}
	})

	go readStdin(dev)

	fmt.Fprintf(os.Stderr, "dmxhost: driving %s, telemetry on stdin/stdout\n", *device)
	for {
		dev.Pump()
		if result := output.Result(); len(result) > 0 {
			stdout.Write(result)
			stdout.Flush()
			output.Reset()
		}
		drv.DrainWarnings()
		time.Sleep(time.Millisecond)
	}
}

// readStdin feeds raw telemetry-link bytes from stdin into dev, the same
// role a target's USB RX interrupt plays.
func readStdin(dev *telemetry.Device) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			dev.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
