package driver

import (
	"testing"

	"github.com/kfriesth/go-dmx512/hal"
)

// fakeClock is a manually-advanced microsecond counter, standing in for a
// hardware free-running timer so tests can drive the state machine
// without waiting on a wall clock.
type fakeClock struct {
	nowUs uint32
}

func (c *fakeClock) NowUS() uint32 { return c.nowUs }

// fakeTimer is a one-shot alarm that only fires when the test explicitly
// asks it to, mirroring the teacher's plain-Go test build pattern of
// calling handlers directly rather than waiting on real concurrency.
type fakeTimer struct {
	armed bool
	atUs  uint32
	cb    hal.TimerCallback
}

func (t *fakeTimer) Arm(atUs uint32, cb hal.TimerCallback) {
	t.armed = true
	t.atUs = atUs
	t.cb = cb
}

func (t *fakeTimer) Cancel() {
	t.armed = false
}

// fireIfDue invokes the armed callback if now has reached the deadline,
// returning whether it fired. The callback may itself call Arm again
// (rearm) before returning.
func (t *fakeTimer) fireIfDue(now uint32) bool {
	if !t.armed || now < t.atUs {
		return false
	}
	t.armed = false
	cb := t.cb
	cb()
	return true
}

type fakeGPIO struct {
	pins map[hal.GPIOPin]bool
}

func newFakeGPIO() *fakeGPIO { return &fakeGPIO{pins: map[hal.GPIOPin]bool{}} }

func (g *fakeGPIO) ConfigureOutput(pin hal.GPIOPin) error { return nil }
func (g *fakeGPIO) SetPin(pin hal.GPIOPin, value bool) error {
	g.pins[pin] = value
	return nil
}
func (g *fakeGPIO) GetPin(pin hal.GPIOPin) (bool, error) { return g.pins[pin], nil }

type fakeUART struct {
	handler func(hal.ByteEvent)
	written []byte
	breaks  []bool
}

func (u *fakeUART) Configure() error                       { return nil }
func (u *fakeUART) SetReceiveHandler(h func(hal.ByteEvent)) { u.handler = h }
func (u *fakeUART) WriteByte(b byte) error                  { u.written = append(u.written, b); return nil }
func (u *fakeUART) TxBusy() bool                            { return false }
func (u *fakeUART) SetBreak(assert bool) error              { u.breaks = append(u.breaks, assert); return nil }

// testDriver bundles a Driver with its fake HAL for easy inspection from
// test bodies.
type testDriver struct {
	d     *Driver
	clock *fakeClock
	uart  *fakeUART
	gpio  *fakeGPIO
	slot  *fakeTimer
	pps   *fakeTimer
	txT   *fakeTimer
}

func newTestDriver(t *testing.T) *testDriver {
	td := &testDriver{
		clock: &fakeClock{},
		uart:  &fakeUART{},
		gpio:  newFakeGPIO(),
		slot:  &fakeTimer{},
		pps:   &fakeTimer{},
		txT:   &fakeTimer{},
	}
	td.d = New(Config{
		Clock:     td.clock,
		UART:      td.uart,
		GPIO:      td.gpio,
		Interrupt: hal.NewMutexInterruptController(),
		SlotTimer: td.slot,
		PPSTimer:  td.pps,
		TxTimer:   td.txT,
		DirPin:    1,
	})
	if err := td.d.Init(); err != nil {
		t.Fatal(err)
	}
	return td
}

// feed delivers a sequence of bytes at a fixed cadence starting at the
// clock's current time, advancing the clock as it goes.
func (td *testDriver) feed(cadenceUs uint32, bytes ...byte) {
	for _, b := range bytes {
		td.clock.nowUs += cadenceUs
		td.uart.handler(hal.ByteEvent{Data: b})
	}
}

func (td *testDriver) sendBreak() {
	td.clock.nowUs += 100
	td.uart.handler(hal.ByteEvent{Break: true})
}

// advanceAndFireSlotWatchdog advances the clock by deltaUs and fires the
// slot watchdog if it is due.
func (td *testDriver) advanceAndFireSlotWatchdog(deltaUs uint32) {
	td.clock.nowUs += deltaUs
	td.slot.fireIfDue(td.clock.nowUs)
}
