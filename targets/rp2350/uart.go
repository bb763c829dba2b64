//go:build tinygo && rp2350

package main

import (
	"device/rp"
	"runtime/interrupt"

	"github.com/kfriesth/go-dmx512/hal"
	"machine"
)

// dmxBaud, dmxDataBits and dmxStopBits are DMX512's fixed line parameters:
// 250kbaud, 8 data bits, 2 stop bits, no parity.
const (
	dmxBaud     = 250000
	dmxDataBits = 8
	dmxStopBits = 2
)

// RPUART drives the RP2350's PL011 UART0 directly rather than through
// machine.UART: the fast interrupt needs the break-error bit that rides
// alongside each byte in UARTDR, which machine.UART's Read never exposes.
type RPUART struct {
	bus       *rp.UART0_Type
	interrupt interrupt.Interrupt
	handler   func(hal.ByteEvent)

	clockFallback bool
}

// NewRPUART returns an RPUART bound to UART0 (TX=GPIO0, RX=GPIO1), the pins
// wired to the RS-485 transceiver's data input/receiver output; its
// driver-enable/receiver-enable pair is the separate direction GPIO.
func NewRPUART() *RPUART {
	return &RPUART{bus: rp.UART0}
}

func (u *RPUART) Configure() error {
	u.resetAndUnreset()
	u.setBaudRate(dmxBaud)
	u.setFormat(dmxDataBits, dmxStopBits)

	u.bus.UARTCR.SetBits(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	machine.GPIO0.Configure(machine.PinConfig{Mode: machine.PinUART})
	machine.GPIO1.Configure(machine.PinConfig{Mode: machine.PinUART})

	if u.interrupt == (interrupt.Interrupt{}) {
		u.interrupt = interrupt.New(rp.IRQ_UART0_IRQ, u.handleInterrupt)
		u.interrupt.SetPriority(0x00) // highest priority: this is the F context
		u.interrupt.Enable()
	}
	u.bus.UARTIMSC.Set(rp.UART0_UARTIMSC_RXIM | rp.UART0_UARTIMSC_RTIM)
	return nil
}

func (u *RPUART) SetReceiveHandler(handler func(hal.ByteEvent)) {
	u.handler = handler
}

func (u *RPUART) WriteByte(b byte) error {
	u.bus.UARTDR.Set(uint32(b))
	return nil
}

func (u *RPUART) TxBusy() bool {
	return u.bus.UARTFR.HasBits(rp.UART0_UARTFR_BUSY)
}

// SetBreak drives the PL011's send-break bit directly: asserting it forces
// the line low for as long as it stays set, which is how the TX pacer holds
// the wire down for the 88us+ BREAK interval between DMX packets.
func (u *RPUART) SetBreak(assert bool) error {
	if assert {
		u.bus.UARTLCR_H.SetBits(rp.UART0_UARTLCR_H_BRK)
	} else {
		u.bus.UARTLCR_H.ClearBits(rp.UART0_UARTLCR_H_BRK)
	}
	return nil
}

func (u *RPUART) resetAndUnreset() {
	rp.RESETS.RESET.SetBits(rp.RESETS_RESET_UART0)
	rp.RESETS.RESET.ClearBits(rp.RESETS_RESET_UART0)
	for !rp.RESETS.RESET_DONE.HasBits(rp.RESETS_RESET_UART0) {
	}
}

func (u *RPUART) setBaudRate(baud uint32) {
	div := 8 * machine.CPUFrequency() / baud
	ibrd := div >> 7
	var fbrd uint32
	switch {
	case ibrd == 0:
		ibrd, fbrd = 1, 0
	case ibrd >= 65535:
		ibrd, fbrd = 65535, 0
	default:
		fbrd = ((div & 0x7f) + 1) / 2
	}
	if div>>7 == 0 || div>>7 >= 65535 {
		u.clockFallback = true
	}
	u.bus.UARTIBRD.Set(ibrd)
	u.bus.UARTFBRD.Set(fbrd)
	u.bus.UARTLCR_H.SetBits(0) // dummy write latches the divisor, per PL011 quirk
}

// ClockFallback reports whether the baud divisor clamped during Configure
// instead of landing on DMX512's exact 250kbaud.
func (u *RPUART) ClockFallback() bool {
	return u.clockFallback
}

func (u *RPUART) setFormat(dataBits, stopBits uint8) {
	u.bus.UARTLCR_H.SetBits(uint32(
		(dataBits-5)<<rp.UART0_UARTLCR_H_WLEN_Pos |
			(stopBits-1)<<rp.UART0_UARTLCR_H_STP2_Pos,
	))
}

// handleInterrupt runs in F context: every byte (or break) is handed
// straight to the driver's receive state machine with no buffering here,
// matching the original's fiq_dmx_in_handler call pattern.
func (u *RPUART) handleInterrupt(interrupt.Interrupt) {
	for !u.bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		word := u.bus.UARTDR.Get()
		if u.handler == nil {
			continue
		}
		if word&rp.UART0_UARTDR_BE != 0 {
			u.handler(hal.ByteEvent{Break: true})
			continue
		}
		u.handler(hal.ByteEvent{Data: byte(word & 0xFF)})
	}
}
