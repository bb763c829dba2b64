//go:build !tinygo

package hal

import "sync"

// State is a placeholder for interrupt state on the host build.
type State uintptr

// MutexInterruptController stands in for CPU interrupt masking when the
// fast-interrupt and timer-interrupt contexts are goroutines instead of
// real interrupts (host build, tests). Disable/Restore bracket the same
// critical sections a tinygo target would mask with CPUInterruptController,
// so driver code is identical across both builds.
type MutexInterruptController struct {
	mu sync.Mutex
}

func NewMutexInterruptController() *MutexInterruptController {
	return &MutexInterruptController{}
}

func (c *MutexInterruptController) Disable() State {
	c.mu.Lock()
	return 0
}

func (c *MutexInterruptController) Restore(_ State) {
	c.mu.Unlock()
}
