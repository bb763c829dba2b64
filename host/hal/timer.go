//go:build !windows && !wasm

package hal

import (
	"sync"
	"time"

	"github.com/kfriesth/go-dmx512/hal"
)

// Timer implements hal.TimerChannel with a real goroutine timer armed
// against a Clock, the same relative-deadline math a hardware alarm
// compare register does, minus the 32-bit wraparound a real counter needs.
type Timer struct {
	clock *Clock
	mu    sync.Mutex
	timer *time.Timer
}

// NewTimer returns a TimerChannel driven by clock.
func NewTimer(clock *Clock) *Timer {
	return &Timer{clock: clock}
}

// Arm implements hal.TimerChannel.
func (t *Timer) Arm(atUs uint32, cb hal.TimerCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	delay := time.Duration(int64(atUs)-int64(t.clock.NowUS())) * time.Microsecond
	if delay < 0 {
		delay = 0
	}
	t.timer = time.AfterFunc(delay, cb)
}

// Cancel implements hal.TimerChannel.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

var _ hal.TimerChannel = (*Timer)(nil)
