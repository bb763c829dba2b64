//go:build tinygo && rp2350

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2350 TIMER0 is at a different base address than the RP2040's TIMER,
// and exposes a raw (non-latching) high/low pair at a different offset.
const (
	timerBase     = 0x400B0000
	timerTimeRawH = timerBase + 0x24
	timerTimeRawL = timerBase + 0x28
)

var (
	timerRawH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawH)))
	timerRawL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawL)))
)

// rpClock implements hal.Clock over the RP2350's raw hardware timer.
type rpClock struct{}

func (rpClock) NowUS() uint32 {
	return timerRawL.Get()
}

func uptimeUS() uint64 {
	for {
		high1 := timerRawH.Get()
		low := timerRawL.Get()
		high2 := timerRawH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}
