//go:build tinygo && rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map: a free-running 64-bit microsecond
// counter at 1MHz, readable without holding any peripheral lock.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24
	timerTIMERAWL = timerBase + 0x28
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// rpClock implements hal.Clock over the RP2040's raw hardware timer.
type rpClock struct{}

// NowUS returns the low 32 bits of the microsecond counter. The driver
// only ever compares differences of two NowUS readings, so wraparound
// after ~71 minutes is harmless as long as no single interval exceeds it.
func (rpClock) NowUS() uint32 {
	return timerRAWL.Get()
}

// uptimeUS reads the full 64-bit counter, retrying if a rollover of the
// low word is caught mid-read.
func uptimeUS() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}
