//go:build tinygo && rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"github.com/kfriesth/go-dmx512/hal"
)

// RP2040 TIMER's four hardware alarms share the same free-running counter
// clock.go reads; each fires its own IRQ line and auto-disarms itself,
// which is exactly the one-shot, replace-on-rearm shape hal.TimerChannel
// needs. The driver only ever has three live timers (slot watchdog, PPS,
// TX pacer), so alarms 0-2 cover it with alarm 3 left spare.
const (
	timerAlarm0 = timerBase + 0x10
	timerAlarm1 = timerBase + 0x14
	timerAlarm2 = timerBase + 0x18
	timerIntr   = timerBase + 0x34
	timerInte   = timerBase + 0x38
)

var (
	alarmReg = [3]*volatile.Register32{
		(*volatile.Register32)(unsafe.Pointer(uintptr(timerAlarm0))),
		(*volatile.Register32)(unsafe.Pointer(uintptr(timerAlarm1))),
		(*volatile.Register32)(unsafe.Pointer(uintptr(timerAlarm2))),
	}
	intrReg = (*volatile.Register32)(unsafe.Pointer(uintptr(timerIntr)))
	inteReg = (*volatile.Register32)(unsafe.Pointer(uintptr(timerInte)))
)

// rpTimerChannel implements hal.TimerChannel over one of TIMER's hardware
// alarms.
type rpTimerChannel struct {
	index int
	cb    hal.TimerCallback
}

var rpTimerChannels [3]*rpTimerChannel

// NewRPTimerChannel binds to alarm index (0, 1 or 2) and installs its IRQ
// handler. Call once per channel at startup.
func NewRPTimerChannel(index int) *rpTimerChannel {
	tc := &rpTimerChannel{index: index}
	rpTimerChannels[index] = tc
	irqNum := rp.IRQ_TIMER_IRQ_0 + index
	intr := interrupt.New(irqNum, rpTimerIRQ)
	intr.SetPriority(0x40)
	intr.Enable()
	return tc
}

func (tc *rpTimerChannel) Arm(atUs uint32, cb hal.TimerCallback) {
	tc.cb = cb
	inteReg.SetBits(1 << tc.index)
	alarmReg[tc.index].Set(atUs)
}

func (tc *rpTimerChannel) Cancel() {
	inteReg.ClearBits(1 << tc.index)
	tc.cb = nil
}

// rpTimerIRQ is shared by all three alarms; it is installed three times
// (once per index) but always re-reads which bit actually fired so a
// spurious shared invocation does nothing.
func rpTimerIRQ(interrupt.Interrupt) {
	for i, tc := range rpTimerChannels {
		if tc == nil {
			continue
		}
		bit := uint32(1 << i)
		if intrReg.Get()&bit == 0 {
			continue
		}
		intrReg.Set(bit) // write-1-to-clear
		cb := tc.cb
		tc.cb = nil
		if cb != nil {
			cb()
		}
	}
}
