// Package protocol implements the generic half of a sync-byte-framed,
// VLQ-encoded, CRC16-checked link: framing/resync, VLQ varint codec, and
// the small ring/scratch buffers the framing runs on. The concrete wire
// values (sync byte, destination mask, frame layout) are not fixed here —
// they are supplied by the caller as a FrameFormat, so this package has no
// DMX-specific content of its own; telemetry.WireFormat is what actually
// pins those values down, next to the command table they frame.
package protocol

// FrameFormat pins down the concrete layout a Transport/HostTransport pair
// agrees on: where the length and sequence bytes sit, where the CRC and
// trailing sync byte sit (counted back from the end of the frame), and the
// byte values used for resynchronization and sequence masking.
type FrameFormat struct {
	Sync    byte // trailing byte a receiver scans for to resynchronize
	Dest    byte // bits OR'd into every sequence byte this side sends
	SeqMask byte // bits of the sequence byte that wrap

	HeaderSize  int
	TrailerSize int
	LengthMin   int
	LengthMax   int

	PositionLength    int // offset of the length byte
	PositionSequence  int // offset of the sequence byte
	TrailerCRCOffset  int // CRC high byte, counted back from frame end
	TrailerSyncOffset int // sync byte, counted back from frame end
}

// ScratchBufferSize is the capacity of a ScratchOutput. It bounds how much
// a single device.Pump or SendCommand call can accumulate, independent of
// any particular FrameFormat's LengthMax (several frames' worth of output
// can be queued between flushes).
const ScratchBufferSize = 512
