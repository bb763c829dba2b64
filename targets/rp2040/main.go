//go:build tinygo && rp2040

package main

import (
	"time"

	"github.com/kfriesth/go-dmx512/driver"
	"github.com/kfriesth/go-dmx512/hal"
	"github.com/kfriesth/go-dmx512/protocol"
	"github.com/kfriesth/go-dmx512/telemetry"
	"machine"
)

const dirSelectPin = hal.GPIOPin(machine.GPIO2)

var (
	drv    *driver.Driver
	reg    *telemetry.Registry
	device *telemetry.Device

	outputBuffer *protocol.ScratchOutput

	msgerrors                uint32
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()

	uart := NewRPUART()
	gpioDriver := NewRPGPIODriver()

	drv = driver.New(driver.Config{
		Clock:     rpClock{},
		UART:      uart,
		GPIO:      gpioDriver,
		Interrupt: hal.CPUInterruptController{},
		SlotTimer: NewRPTimerChannel(0),
		PPSTimer:  NewRPTimerChannel(1),
		TxTimer:   NewRPTimerChannel(2),
		DirPin:    dirSelectPin,
	})
	if err := drv.Init(); err != nil {
		return
	}
	drv.SetDebugWriter(DebugPrintln)
	if uart.ClockFallback() {
		drv.RecordUartClockFallback(rpClock{}.NowUS(), dmxBaud)
	}

	reg = telemetry.NewRegistry()
	outputBuffer = protocol.NewScratchOutput()
	device = telemetry.NewDevice(reg, outputBuffer, 256)
	endpoint := telemetry.NewEndpoint(reg, drv, device)
	dict := telemetry.NewDictionary(reg, "dmx512-rp2040-1")
	endpoint.SetDictionary(dict)

	// Flush ACKs to USB immediately - serialqueue expects ACK before response.
	device.SetFlushCallback(writeUSB)

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					device.Reset()
					outputBuffer.Reset()
				}
			}()

			device.Pump()

			result := outputBuffer.Result()
			if len(result) > 0 {
				writeUSB()
			}

			drv.DrainWarnings()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected {
				usbWasDisconnected = false
				device.Reset()
				outputBuffer.Reset()
				consecutiveWriteFailures = 0
			}

			device.Feed([]byte{data})
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes available data from the output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
