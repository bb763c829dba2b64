package driver

import "github.com/kfriesth/go-dmx512/rdm"

// DmxUniverseSize is the number of data slots in a full DMX512 universe,
// not counting the start code.
const DmxUniverseSize = 512

// DmxFrame is one ring slot for the DMX receive path: a start code plus up
// to 512 slots, and the per-frame timing statistics computed while the
// frame was received. It becomes immutable the moment the producer
// publishes it to the ring.
type DmxFrame struct {
	Data  [DmxUniverseSize + 1]byte // Data[0] is the start code, Data[1:] are slots 1..512
	Stats FrameStats
}

// FrameStats carries the per-frame timing captured by the receive state
// machine and slot watchdog. It travels with the frame so a consumer reads
// a self-consistent snapshot without a second lock.
type FrameStats struct {
	SlotsInPacket uint16 // 0..512, authoritative frame length
	SlotToSlot    uint32 // microseconds, clamped >= minSlotToSlotUs
	BreakToBreak  uint32 // microseconds, 0 on the first DMX frame of a run
}

// RdmFrame is one ring slot for the RDM/discovery receive path, sized for
// the largest response the driver will buffer.
type RdmFrame struct {
	Data [rdm.RdmFrameSize]byte
	Len  int // bytes actually written
}
