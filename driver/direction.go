package driver

import "github.com/kfriesth/go-dmx512/hal"

// Direction selects which side of the RS-485 transceiver is driven.
type Direction int

const (
	DirectionInput  Direction = iota // receive DMX/RDM from the line
	DirectionOutput                  // transmit DMX/RDM onto the line
)

// SetDirection is the direction controller (C6). It is not safe to call
// concurrently with itself or with any other Driver method — the caller
// must serialize direction changes.
func (d *Driver) SetDirection(dir Direction, enableData bool) {
	// Stop current activity.
	if d.tx.state != txIdle || d.direction == DirectionOutput {
		deadline := d.clock.NowUS() + d.tx.periodUs
		for d.tx.state != txIdle && int32(d.clock.NowUS()-deadline) < 0 {
		}
		if d.tx.state != txIdle {
			d.debug.record(warnTxDrainForcedStop, d.clock.NowUS(), uint32(d.tx.state))
		}
	}
	d.txTimer.Cancel()

	state := d.irq.Disable()
	d.rxEnabled = false
	d.slotTimer.Cancel()
	d.ppsTimer.Cancel()
	d.rx.state = rxIdle
	d.irq.Restore(state)

	d.dmxRing.Drain()

	d.gpio.SetPin(d.dirPin, dir == DirectionOutput)
	d.direction = dir

	if !enableData {
		return
	}

	if dir == DirectionOutput {
		d.startTx()
		return
	}

	d.rxEnabled = true
	d.armSlotWatchdog(d.clock.NowUS() + minSlotToSlotUs)
	d.armPPSTimer()
}

// configureHAL wires the GPIO direction pin and UART, called once from
// Init.
func (d *Driver) configureHAL(gpio hal.GPIODriver, dirPin hal.GPIOPin) {
	d.gpio = gpio
	d.dirPin = dirPin
	d.gpio.ConfigureOutput(dirPin)
}
