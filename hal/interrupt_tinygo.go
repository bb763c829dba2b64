//go:build tinygo

package hal

import "runtime/interrupt"

// State is the saved interrupt-enable state returned by Disable.
type State = interrupt.State

// CPUInterruptController masks the CPU's interrupt controller directly. It
// is the only implementation that gives the fast interrupt (RX) real
// priority over the foreground API.
type CPUInterruptController struct{}

func (CPUInterruptController) Disable() State {
	return interrupt.Disable()
}

func (CPUInterruptController) Restore(state State) {
	interrupt.Restore(state)
}
