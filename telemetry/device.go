package telemetry

import "github.com/kfriesth/go-dmx512/protocol"

// Device is the MCU-side half of the telemetry link: an input FIFO fed by
// the UART/USB RX interrupt, a protocol.Transport doing the framing, and a
// Registry dispatching decoded commands. Pump must be called from
// foreground context whenever new bytes have arrived; nothing here runs
// from an interrupt.
type Device struct {
	reg       *Registry
	transport *protocol.Transport
	input     *protocol.FifoBuffer
}

// NewDevice wires a Registry to a fresh Transport built on output and
// reading from a FifoBuffer of the given capacity. The returned Device
// satisfies the Responder interface NewEndpoint expects.
func NewDevice(reg *Registry, output protocol.OutputBuffer, inputCapacity int) *Device {
	d := &Device{reg: reg, input: protocol.NewFifoBuffer(inputCapacity)}
	d.transport = protocol.NewTransport(output, func(cmdID uint16, data *[]byte) error {
		return reg.Dispatch(cmdID, data)
	}, WireFormat)
	return d
}

// Feed appends bytes received from the link into the input FIFO. Safe to
// call from the UART RX handler; it only copies bytes, it never dispatches.
func (d *Device) Feed(data []byte) {
	d.input.Write(data)
}

// Pump processes every complete frame currently buffered in the input
// FIFO, dispatching commands and sending ACK/NAK as protocol.Transport
// requires. Call this from the main foreground loop, not from an
// interrupt — command handlers may take arbitrarily long.
func (d *Device) Pump() {
	d.transport.Receive(d.input)
}

// SendCommand sends a response frame; satisfies the Responder interface.
func (d *Device) SendCommand(cmdID uint16, args func(output protocol.OutputBuffer)) {
	d.transport.SendCommand(cmdID, args)
}

// Reset resets transport framing state, e.g. after a USB CDC reconnect.
func (d *Device) Reset() {
	d.transport.Reset()
}

// SetFlushCallback forwards to the underlying Transport; see its docs on
// why ACKs must flush immediately rather than wait for the main loop.
func (d *Device) SetFlushCallback(callback func()) {
	d.transport.SetFlushCallback(callback)
}
