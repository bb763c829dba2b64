package driver

// minBreakTimeUs and minMabTimeUs are the configurable pacing floors; a
// caller may widen these but never narrow them below the wire minimum.
const (
	minBreakTimeUs    = 92
	minMabTimeUs      = 12
	minBreakToBreakUs = 1204 // DMX512 break-to-break minimum
)

// txState is the transmit pacing state machine's current state.
type txState int

const (
	txIdle txState = iota
	txBreak
	txMab
)

// transmitContext is the interrupt-owned state for the TX side. Touched
// only from the I context (handleTxTimeout) and, for configuration, from
// B under the direction controller's serialization contract.
type transmitContext struct {
	state txState

	breakUs uint32 // timestamp of the most recently started BREAK

	dataLen           int // 1 + slot count; 1..len(stagingBuf)
	stagingBuf        [DmxUniverseSize + 1]byte
	breakTimeUs       uint32
	mabTimeUs         uint32
	periodRequestedUs uint32
	periodUs          uint32 // effective, derived by recomputePeriod
}

func newTransmitContext() transmitContext {
	tc := transmitContext{
		breakTimeUs: minBreakTimeUs,
		mabTimeUs:   minMabTimeUs,
		dataLen:     1,
	}
	tc.stagingBuf[0] = 0x00
	tc.recomputePeriod()
	return tc
}

// recomputePeriod derives the effective inter-packet period from the
// current break/MAB/data-length configuration, per the +44/1204 rule: the
// +44 guarantees at least one slot-time of gap, 1204 is the DMX512
// break-to-break floor.
func (tc *transmitContext) recomputePeriod() {
	pkt := tc.breakTimeUs + tc.mabTimeUs + uint32(tc.dataLen)*44
	if tc.periodRequestedUs == 0 || tc.periodRequestedUs < pkt {
		period := pkt + 44
		if period < minBreakToBreakUs {
			period = minBreakToBreakUs
		}
		tc.periodUs = period
	} else {
		tc.periodUs = tc.periodRequestedUs
	}
}

// startTx arms the first BREAK. Called by the direction controller when
// entering OUTPUT mode with data enabled. now+4us gives headroom so a
// burst right after a direction change still respects the previous BREAK
// timestamp.
func (d *Driver) startTx() {
	nowUs := d.clock.NowUS()
	at := nowUs + 4
	if int32(d.tx.breakUs+d.tx.periodUs-nowUs) > 0 {
		at = d.tx.breakUs + d.tx.periodUs + 4
	}
	d.tx.state = txIdle
	d.txTimer.Arm(at, d.handleTxTimeout)
}

// handleTxTimeout is the I-context entry point driving the send cycle:
// IDLE -> BREAK -> MAB -> (inline DATA) -> IDLE.
func (d *Driver) handleTxTimeout() {
	tc := &d.tx
	nowUs := d.clock.NowUS()

	switch tc.state {
	case txIdle:
		d.uart.SetBreak(true)
		tc.breakUs = nowUs
		tc.state = txBreak
		d.txTimer.Arm(nowUs+tc.breakTimeUs, d.handleTxTimeout)

	case txBreak:
		d.uart.SetBreak(false)
		tc.state = txMab
		d.txTimer.Arm(nowUs+tc.mabTimeUs, d.handleTxTimeout)

	case txMab:
		for i := 0; i < tc.dataLen; i++ {
			d.uart.WriteByte(tc.stagingBuf[i])
		}
		for d.uart.TxBusy() {
		}
		tc.state = txIdle
		d.txTimer.Arm(tc.breakUs+tc.periodUs, d.handleTxTimeout)
	}
}
