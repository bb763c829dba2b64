package telemetry

import "github.com/kfriesth/go-dmx512/protocol"

// WireFormat is this driver's telemetry link framing: Klipper's
// sync-byte/length/CRC16 layout, the same link the command table in
// commands.go and dictionary.go is serialized against. protocol.Transport
// and protocol.HostTransport are generic over FrameFormat; this is the one
// value that actually pins the link down for every target and for the host
// side in host/mcu.
var WireFormat = protocol.FrameFormat{
	Sync:    0x7E,
	Dest:    0x10,
	SeqMask: 0x0F,

	HeaderSize:  2,
	TrailerSize: 3,
	LengthMin:   5,
	LengthMax:   64,

	PositionLength:    0,
	PositionSequence:  1,
	TrailerCRCOffset:  3,
	TrailerSyncOffset: 1,
}
