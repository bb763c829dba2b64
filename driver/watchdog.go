package driver

// armSlotWatchdog (re)arms the I-context slot watchdog timer. Called from
// the F context after every DMX data byte, and again by the watchdog
// itself when it fires without having gone stale.
func (d *Driver) armSlotWatchdog(atUs uint32) {
	d.slotTimer.Arm(atUs, d.handleSlotTimeout)
}

// handleSlotTimeout is the I-context entry point for the inter-slot
// watchdog: DMX512 requires no hard inter-slot limit, but a frame that
// stalls mid-universe must still be delivered to the consumer with
// whatever slots arrived. This finalizes a truncated DMX frame rather
// than cancelling it.
func (d *Driver) handleSlotTimeout() {
	rc := &d.rx
	if rc.state != rxDmxData {
		return
	}

	nowUs := d.clock.NowUS()
	if nowUs-d.rx.lastByteUs > rc.dmxSlot.Stats.SlotToSlot {
		rc.dmxSlot.Stats.SlotsInPacket = uint16(rc.index - 1)
		d.debug.record(warnSlotWatchdogTruncated, nowUs, uint32(rc.dmxSlot.Stats.SlotsInPacket))
		if !d.dmxRing.Commit() {
			d.debug.record(warnRingOverrun, nowUs, uint32(rc.dmxSlot.Stats.SlotsInPacket))
		}
		rc.state = rxIdle
		return
	}

	d.armSlotWatchdog(nowUs + rc.dmxSlot.Stats.SlotToSlot)
}
