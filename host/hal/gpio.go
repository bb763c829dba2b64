//go:build !windows && !wasm

package hal

import (
	"golang.org/x/sys/unix"

	"github.com/kfriesth/go-dmx512/hal"
)

// GPIO implements hal.GPIODriver by toggling the RS-485 adapter's RTS line
// through TIOCMBIS/TIOCMBIC, the standard way to drive a USB-serial
// adapter's external half-duplex transceiver direction pin. There is only
// one physical line to control, so every GPIOPin this driver is asked
// about maps onto it; a real multi-pin host adapter would need a distinct
// GPIODriver per controllable line.
type GPIO struct {
	uart *UART
}

// NewGPIO returns a GPIODriver that drives u's adapter's RTS line.
func NewGPIO(u *UART) *GPIO {
	return &GPIO{uart: u}
}

// ConfigureOutput implements hal.GPIODriver. The RTS line is always an
// output once the port is open, so there is nothing further to configure.
func (g *GPIO) ConfigureOutput(pin hal.GPIOPin) error {
	return nil
}

// SetPin implements hal.GPIODriver by asserting or clearing RTS. When
// Open already enabled the kernel's own RS-485 RTS-on-send handling
// (u.kernelRS485), the kernel toggles RTS itself around every byte
// written and a manual TIOCMBIS/TIOCMBIC here would only race it, so this
// becomes a no-op; otherwise it falls back to driving RTS by hand exactly
// as a generic USB-serial adapter without RS-485 support requires.
func (g *GPIO) SetPin(pin hal.GPIOPin, value bool) error {
	if g.uart.kernelRS485 {
		return nil
	}
	if value {
		return unix.IoctlSetPointerInt(g.uart.rawFd, unix.TIOCMBIS, unix.TIOCM_RTS)
	}
	return unix.IoctlSetPointerInt(g.uart.rawFd, unix.TIOCMBIC, unix.TIOCM_RTS)
}

// GetPin implements hal.GPIODriver by reading back the modem status bits.
func (g *GPIO) GetPin(pin hal.GPIOPin) (bool, error) {
	bits, err := unix.IoctlGetInt(g.uart.rawFd, unix.TIOCMGET)
	if err != nil {
		return false, err
	}
	return bits&unix.TIOCM_RTS != 0, nil
}

var _ hal.GPIODriver = (*GPIO)(nil)
