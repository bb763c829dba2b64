package hal

// ByteEvent is delivered to the receive handler for every byte the fast
// interrupt observes on the wire, including the synthetic byte (0x00) that
// accompanies a break condition.
type ByteEvent struct {
	Data  byte
	Break bool // set when this event is a break condition, not a data byte
}

// UART is the line-level contract the receive and transmit state machines
// are built on. A target implementation drives it from the real PL011-style
// data register (data bit 10 carries the break-error flag alongside the
// received byte) and installs ReceiveHandler as a high-priority interrupt
// handler; the host build drives it from a software byte/timing simulation
// over a real or virtual serial port.
type UART interface {
	// Configure sets the line for DMX512: 250000 baud, 8 data bits, 2 stop
	// bits, no parity.
	Configure() error

	// SetReceiveHandler installs the callback invoked from the fast
	// interrupt context for every received byte or break condition. Must
	// be called before Configure enables the receiver.
	SetReceiveHandler(handler func(ByteEvent))

	// WriteByte pushes a single byte into the transmit FIFO. The caller
	// (the TX timer interrupt) is responsible for pacing.
	WriteByte(b byte) error

	// TxBusy reports whether the transmit shift register or FIFO still
	// has data in flight.
	TxBusy() bool

	// SetBreak asserts or clears a break condition on the line.
	SetBreak(assert bool) error
}
