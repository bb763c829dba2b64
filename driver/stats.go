package driver

// packetStats holds the plain totals incremented only by the RX F
// context.
type packetStats struct {
	dmxPackets uint32
	rdmPackets uint32

	dmxPacketsAtLastTick uint32
	updatesPerSecond     uint32
}

// TotalStatistics is a snapshot of the driver's packet counters.
type TotalStatistics struct {
	DmxPackets    uint32
	RdmPackets    uint32
	DroppedFrames uint32 // ring.Ring.Dropped() for both rings, summed
}

// GetTotalStatistics returns the current packet totals. DmxPackets and
// RdmPackets count started frames (incremented on BREAK->start-code, not
// on successful delivery) — see the design notes on this choice.
func (d *Driver) GetTotalStatistics() TotalStatistics {
	return TotalStatistics{
		DmxPackets:    d.stats.dmxPackets,
		RdmPackets:    d.stats.rdmPackets,
		DroppedFrames: d.dmxRing.Dropped() + d.rdmRing.Dropped(),
	}
}

// GetUpdatesPerSecond returns the DMX frame rate measured over the most
// recently completed one-second window.
func (d *Driver) GetUpdatesPerSecond() uint32 {
	return d.stats.updatesPerSecond
}

// GetReceiveState returns the RX state machine's current state, for
// diagnostics (e.g. telemetry's dmx_get_receive_state command).
func (d *Driver) GetReceiveState() int {
	return int(d.rx.state)
}

// armPPSTimer (re)arms the once-a-second updates-per-second tick.
func (d *Driver) armPPSTimer() {
	d.ppsTimer.Arm(d.clock.NowUS()+1000000, d.handlePPSTimeout)
}

// handlePPSTimeout is the I-context entry point for the PPS counter.
func (d *Driver) handlePPSTimeout() {
	d.stats.updatesPerSecond = d.stats.dmxPackets - d.stats.dmxPacketsAtLastTick
	d.stats.dmxPacketsAtLastTick = d.stats.dmxPackets
	d.armPPSTimer()
}
