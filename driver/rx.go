package driver

import (
	"github.com/kfriesth/go-dmx512/hal"
	"github.com/kfriesth/go-dmx512/rdm"
)

// rxState is the receive state machine's current state. Kept as a small
// integer enum and driven by one flat switch in handleByteEvent — the
// transition table is the specification, not an optimization, so there is
// no interface-per-state indirection here.
type rxState int

const (
	rxIdle rxState = iota
	rxBreak
	rxDmxData
	rxRdmData
	rxChecksumH
	rxChecksumL
	rxDiscFE
	rxDiscEUID
	rxDiscCS
)

// minSlotToSlotUs is the hardware FIQ-latency floor: a slot_to_slot value
// below this is treated as a late interrupt, not a fast one.
const minSlotToSlotUs = 44

// slotRearmMarginUs is added to slot_to_slot when arming the slot
// watchdog, so a byte arriving exactly on cadence never races the timer.
const slotRearmMarginUs = 12

// receiveContext is the interrupt-owned state for the RX side. It is
// filled by the F context (handleByteEvent) and the I context
// (handleSlotTimeout); B only resets it (Init, and SetDirection with
// interrupts disabled) and reads its state (GetReceiveState).
type receiveContext struct {
	state rxState
	index int // next write position in the slot currently being filled

	dmxSlot *DmxFrame
	rdmSlot *RdmFrame

	rdmChecksum uint16

	lastByteUs    uint32
	lastBreakUs   uint32
	prevBreakUs   uint32
	prevBreakWasDmx bool

	discIndex int
}

// handleByteEvent is the fast-interrupt entry point: one UART byte or
// break condition per call. It must run to completion within one slot
// time and must never call back into a B-visible API.
func (d *Driver) handleByteEvent(ev hal.ByteEvent, nowUs uint32) {
	if !d.rxEnabled {
		return
	}
	rc := &d.rx

	if ev.Break {
		// BREAK always wins, regardless of what state we were in. Any
		// frame in progress is abandoned without publish; its slot is
		// reused by whatever starts next.
		rc.state = rxBreak
		rc.prevBreakUs = rc.lastBreakUs
		rc.lastBreakUs = nowUs
		rc.lastByteUs = nowUs
		return
	}

	data := ev.Data

	switch rc.state {
	case rxIdle:
		if data == rdm.StartCodeDiscovery {
			rc.rdmSlot = d.rdmRing.Reserve()
			rc.rdmSlot.Data[0] = rdm.StartCodeDiscovery
			rc.index = 1
			rc.state = rxDiscFE
		}

	case rxBreak:
		switch data {
		case rdm.StartCodeDMX:
			rc.dmxSlot = d.dmxRing.Reserve()
			rc.dmxSlot.Data[0] = rdm.StartCodeDMX
			rc.index = 1
			d.stats.dmxPackets++
			if rc.prevBreakWasDmx {
				rc.dmxSlot.Stats.BreakToBreak = rc.lastBreakUs - rc.prevBreakUs
			} else {
				rc.prevBreakWasDmx = true
				rc.dmxSlot.Stats.BreakToBreak = 0
			}
			rc.state = rxDmxData

		case rdm.StartCodeRDM:
			rc.rdmSlot = d.rdmRing.Reserve()
			rc.rdmSlot.Data[0] = rdm.StartCodeRDM
			rc.rdmChecksum = uint16(rdm.StartCodeRDM)
			rc.index = 1
			d.stats.rdmPackets++
			rc.prevBreakWasDmx = false
			rc.state = rxRdmData

		default:
			rc.prevBreakWasDmx = false
			rc.state = rxIdle
		}

	case rxDmxData:
		slotToSlot := nowUs - rc.lastByteUs
		if slotToSlot < minSlotToSlotUs {
			slotToSlot = minSlotToSlotUs
		}
		rc.dmxSlot.Stats.SlotToSlot = slotToSlot
		rc.dmxSlot.Data[rc.index] = data
		rc.index++
		d.armSlotWatchdog(nowUs + slotToSlot + slotRearmMarginUs)

		if rc.index > DmxUniverseSize {
			rc.dmxSlot.Stats.SlotsInPacket = DmxUniverseSize
			if !d.dmxRing.Commit() {
				d.debug.record(warnRingOverrun, nowUs, uint32(DmxUniverseSize))
			}
			rc.state = rxIdle
		}

	case rxRdmData:
		if rc.index >= len(rc.rdmSlot.Data) {
			rc.state = rxIdle
			break
		}
		rc.rdmSlot.Data[rc.index] = data
		rc.rdmChecksum += uint16(data)
		rc.index++

		if rc.index <= rdm.MessageLengthOffset {
			break
		}
		msgLen := int(rc.rdmSlot.Data[rdm.MessageLengthOffset])
		if err := rdm.ValidateMessageLength(msgLen); err != nil {
			rc.state = rxIdle
			break
		}
		if rc.index == msgLen {
			rc.state = rxChecksumH
		}

	case rxChecksumH:
		rc.rdmSlot.Data[rc.index] = data
		rc.index++
		rc.rdmChecksum -= uint16(data) << 8
		rc.state = rxChecksumL

	case rxChecksumL:
		rc.rdmSlot.Data[rc.index] = data
		rc.index++
		rc.rdmChecksum -= uint16(data)
		if rc.rdmChecksum == 0 && rc.rdmSlot.Data[1] == rdm.SubStartCodeMessage {
			rc.rdmSlot.Len = rc.index
			if !d.rdmRing.Commit() {
				d.debug.record(warnRingOverrun, nowUs, uint32(rc.rdmSlot.Len))
			}
		}
		rc.state = rxIdle

	case rxDiscFE:
		if rc.index+1+rdm.DiscoveryEUIDSize+rdm.DiscoveryChecksumSize > len(rc.rdmSlot.Data) {
			rc.state = rxIdle
			break
		}
		switch data {
		case rdm.StartCodeDiscovery:
			rc.rdmSlot.Data[rc.index] = rdm.StartCodeDiscovery
			rc.index++
		case rdm.DiscoveryDelimiter:
			rc.rdmSlot.Data[rc.index] = rdm.DiscoveryDelimiter
			rc.index++
			rc.discIndex = 0
			rc.state = rxDiscEUID
		default:
			rc.state = rxIdle
		}

	case rxDiscEUID:
		rc.rdmSlot.Data[rc.index] = data
		rc.index++
		rc.discIndex++
		if rc.discIndex == rdm.DiscoveryEUIDSize {
			rc.state = rxDiscCS
			rc.discIndex = 0
		}

	case rxDiscCS:
		rc.rdmSlot.Data[rc.index] = data
		rc.index++
		rc.discIndex++
		if rc.discIndex == rdm.DiscoveryChecksumSize {
			rc.rdmSlot.Len = rc.index
			if !d.rdmRing.Commit() {
				d.debug.record(warnRingOverrun, nowUs, uint32(rc.rdmSlot.Len))
			}
			rc.state = rxIdle
		}
	}

	rc.lastByteUs = nowUs
}
