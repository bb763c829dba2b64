// Package driver implements the DMX512/RDM line driver: the receive
// state machine, slot watchdog, transmit pacer, direction controller, and
// statistics that together turn a hal.UART/hal.GPIODriver pair into the
// public API a host application drives.
package driver

import (
	"github.com/kfriesth/go-dmx512/hal"
	"github.com/kfriesth/go-dmx512/ring"
)

// defaultRingCapacity is the number of committed, unread frames each ring
// holds; the ring adds one more slot for the frame the producer is
// filling. The source this is grounded on uses a small power-of-two
// count; four lets the producer keep finishing frames while the consumer
// is still draining earlier ones.
const defaultRingCapacity = 4

// Driver is the line driver's single instance: it owns both rings, the
// receive and transmit state machines, and the direction it currently
// drives. All exported methods are the B (foreground) context; they must
// never be called concurrently with each other (the API contract requires
// the caller to serialize) though the RX/TX interrupt contexts run
// concurrently with B by design.
type Driver struct {
	clock     hal.Clock
	uart      hal.UART
	gpio      hal.GPIODriver
	irq       hal.InterruptController
	slotTimer hal.TimerChannel
	ppsTimer  hal.TimerChannel
	txTimer   hal.TimerChannel

	dirPin    hal.GPIOPin
	direction Direction
	rxEnabled bool

	dmxRing *ring.Ring[DmxFrame]
	rdmRing *ring.Ring[RdmFrame]

	rx    receiveContext
	tx    transmitContext
	stats packetStats

	dmxShadow      DmxFrame
	dmxShadowValid bool

	debug       debugRing
	debugWriter DebugWriter
}

// Config gathers the hardware dependencies Init needs. All fields are
// required.
type Config struct {
	Clock     hal.Clock
	UART      hal.UART
	GPIO      hal.GPIODriver
	Interrupt hal.InterruptController
	SlotTimer hal.TimerChannel
	PPSTimer  hal.TimerChannel
	TxTimer   hal.TimerChannel
	DirPin    hal.GPIOPin
}

// New constructs a Driver from its hardware dependencies. Call Init before
// using it.
func New(cfg Config) *Driver {
	return &Driver{
		clock:     cfg.Clock,
		uart:      cfg.UART,
		gpio:      cfg.GPIO,
		irq:       cfg.Interrupt,
		slotTimer: cfg.SlotTimer,
		ppsTimer:  cfg.PPSTimer,
		txTimer:   cfg.TxTimer,
		dirPin:    cfg.DirPin,
		dmxRing:   ring.New[DmxFrame](defaultRingCapacity),
		rdmRing:   ring.New[RdmFrame](defaultRingCapacity),
		tx:        newTransmitContext(),
	}
}

// Init is idempotent: it zeros both rings, installs the UART receive
// handler, and defaults to INPUT with data disabled (matching the
// hardware's safe power-on state — nothing drives the line until a
// caller explicitly enables it).
func (d *Driver) Init() error {
	d.configureHAL(d.gpio, d.dirPin)
	d.uart.SetReceiveHandler(func(ev hal.ByteEvent) {
		d.handleByteEvent(ev, d.clock.NowUS())
	})
	if err := d.uart.Configure(); err != nil {
		return err
	}
	d.rx = receiveContext{}
	d.SetDirection(DirectionInput, false)
	return nil
}

// GetAvailableDmx pops the oldest committed DMX frame, if any. The
// returned pointer is valid until the next call that pops this ring
// (GetAvailableDmx or IsDataChanged).
func (d *Driver) GetAvailableDmx() (*DmxFrame, bool) {
	f, ok := d.dmxRing.Pop()
	if !ok {
		return nil, false
	}
	return &f, true
}

// GetAvailableRdm pops the oldest committed RDM/discovery frame, if any.
func (d *Driver) GetAvailableRdm() (*RdmFrame, bool) {
	f, ok := d.rdmRing.Pop()
	if !ok {
		return nil, false
	}
	return &f, true
}

// IsDataChanged pops the next DMX frame and compares it against the
// shadow copy of the last frame returned by this method. It is the only
// diff API — combining pop and diff keeps the shadow coherent, since a
// caller using both GetAvailableDmx and IsDataChanged on the same ring
// would desynchronize the shadow.
func (d *Driver) IsDataChanged() (*DmxFrame, bool) {
	f, ok := d.dmxRing.Pop()
	if !ok {
		return nil, false
	}

	changed := !d.dmxShadowValid ||
		f.Stats.SlotsInPacket != d.dmxShadow.Stats.SlotsInPacket ||
		f.Data != d.dmxShadow.Data

	d.dmxShadow = f
	d.dmxShadowValid = true

	if !changed {
		return nil, false
	}
	return &d.dmxShadow, true
}

// SetSendData copies buf into the transmit staging slot and recomputes
// the effective period. len(buf) must be 1..len(stagingBuf), including
// the start code as buf[0].
func (d *Driver) SetSendData(buf []byte) {
	state := d.irq.Disable()
	n := copy(d.tx.stagingBuf[:], buf)
	d.tx.dataLen = n
	d.tx.recomputePeriod()
	d.irq.Restore(state)
}

// SetBreakTimeUs clamps to the wire minimum and recomputes the period.
func (d *Driver) SetBreakTimeUs(us uint32) {
	if us < minBreakTimeUs {
		us = minBreakTimeUs
	}
	state := d.irq.Disable()
	d.tx.breakTimeUs = us
	d.tx.recomputePeriod()
	d.irq.Restore(state)
}

// SetMabTimeUs clamps to the wire minimum and recomputes the period.
func (d *Driver) SetMabTimeUs(us uint32) {
	if us < minMabTimeUs {
		us = minMabTimeUs
	}
	state := d.irq.Disable()
	d.tx.mabTimeUs = us
	d.tx.recomputePeriod()
	d.irq.Restore(state)
}

// SetPeriodUs sets the requested inter-packet period. recomputePeriod
// uses it as given when it is at least the packet time; when it is 0 or
// shorter than the packet time, the period falls back to pkt+44, floored
// at 1204us.
func (d *Driver) SetPeriodUs(us uint32) {
	state := d.irq.Disable()
	d.tx.periodRequestedUs = us
	d.tx.recomputePeriod()
	d.irq.Restore(state)
}
