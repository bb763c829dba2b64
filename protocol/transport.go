package protocol

import "sync/atomic"

// CommandHandler is a function type for handling decoded commands
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device (MCU) side of the telemetry framing: it
// resynchronizes on the sync byte after any corruption, verifies CRC16,
// and dispatches decoded commands to handler. The concrete frame layout
// (sync byte, destination mask, header/trailer sizes) is supplied by the
// caller as a FrameFormat rather than fixed here, so this type frames
// whatever link format its caller defines.
type Transport struct {
	format FrameFormat

	isSynchronized uint32 // atomic bool (0 = false, 1 = true)
	nextSequence   uint32 // atomic uint8 stored as uint32
	// For receiving: expected sequence from host (format.Dest | 0x00-0x0F)
	// For sending: sequence for responses/ACKs (same value)
	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // Called when host reset is detected
	flushCallback func() // Called to immediately flush ACK to the link
}

// NewTransport creates a new Transport instance framing output/handler
// according to format.
func NewTransport(output OutputBuffer, handler CommandHandler, format FrameFormat) *Transport {
	return &Transport{
		format:         format,
		isSynchronized: 1,            // Start synchronized
		nextSequence:   uint32(format.Dest), // Expected sequence from host
		output:         output,
		handler:        handler,
	}
}

// Receive processes incoming data from the input buffer
// This is the main entry point for handling received messages
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == t.format.Sync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				// Found sync byte - skip garbage before it and resync
				data = data[syncPos+1:]
				t.setSynchronized(true)
				t.encodeAckNak()
				// Continue processing in synchronized mode
			} else {
				// No sync byte found - discard all data
				data = nil
			}
		} else {
			// Skip leading sync bytes
			if data[0] == t.format.Sync {
				data = data[1:]
				continue
			}

			// Need at least minimum message length
			if len(data) < t.format.LengthMin {
				break
			}

			// Extract message length
			msgLen := int(data[t.format.PositionLength])
			if msgLen < t.format.LengthMin || msgLen > t.format.LengthMax {
				t.setSynchronized(false)
				continue
			}

			// Check sequence/destination byte
			seq := data[t.format.PositionSequence]
			if seq&^t.format.SeqMask != t.format.Dest {
				t.setSynchronized(false)
				continue
			}

			// Wait for full message
			if len(data) < msgLen {
				break
			}

			// Verify trailing sync byte
			if data[msgLen-t.format.TrailerSyncOffset] != t.format.Sync {
				t.setSynchronized(false)
				continue
			}

			// Verify CRC
			frameCRC := uint16(data[msgLen-t.format.TrailerCRCOffset])<<8 |
				uint16(data[msgLen-t.format.TrailerCRCOffset+1])
			if !VerifyCRC16(data[:msgLen-t.format.TrailerSize], frameCRC) {
				t.setSynchronized(false)
				continue
			}

			// Extract frame data (between header and trailer)
			frame := data[t.format.HeaderSize : msgLen-t.format.TrailerSize]
			data = data[msgLen:]

			// Check for host reset (sequence back to format.Dest)
			expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
			if seq == t.format.Dest && expectedSeq != t.format.Dest {
				// Host reset detected - clear our state
				atomic.StoreUint32(&t.nextSequence, uint32(t.format.Dest))
				expectedSeq = t.format.Dest
				// Call reset callback if set
				if t.resetCallback != nil {
					t.resetCallback()
				}
			}

			// Process the frame only if the sequence matches what we expect.
			if seq == expectedSeq {
				// Sequence matches - increment and process
				nextSeq := ((seq + 1) & t.format.SeqMask) | t.format.Dest
				atomic.StoreUint32(&t.nextSequence, uint32(nextSeq))
				_ = t.parseFrame(frame)
			}
			// Always send ACK/NAK after processing (or not processing) the frame.
			// If the sequence didn't match, this acts as a NAK carrying the
			// sequence we actually expect.
			t.encodeAckNak()
		}
	}

	// Remove consumed bytes from input
	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame extracts and dispatches commands from a frame
func (t *Transport) parseFrame(frame []byte) (err error) {
	// Recover from any panics in command handlers to prevent firmware crash
	defer func() {
		if r := recover(); r != nil {
			// Panic occurred - set synchronized to false to trigger resync
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		// Decode command ID
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			// Malformed VLQ - desync and return
			t.setSynchronized(false)
			return err
		}

		// Call command handler
		if t.handler != nil {
			if err := t.handler(uint16(cmdID), &frame); err != nil {
				// Handler error - stop parsing this frame and return
				// the error, but stay synchronized
				return err
			}
		}
	}
	return nil
}

// encodeAckNak sends an ACK/NAK message
// CRITICAL: ACK must be sent immediately, not buffered with responses
// This matches Klipper's expectation that ACK arrives before response
func (t *Transport) encodeAckNak() {
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	crc := CRC16([]byte{byte(t.format.HeaderSize + t.format.TrailerSize), ns})

	ackMsg := []byte{
		byte(t.format.HeaderSize + t.format.TrailerSize),
		ns,
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		t.format.Sync,
	}

	t.output.Output(ackMsg)

	// Force immediate flush of ACK - don't wait for main loop
	// This is critical for serialqueue which waits for ACK before accepting responses
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame encodes and sends a frame with the given data
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	// Write header (length placeholder and sequence)
	// CRITICAL: Per Klipper protocol docs, both ACK and responses use the SAME sequence
	// "The high-order bits always contain 0x10" applies to BOTH directions
	// So if we received 0x10, we send ACK and response with 0x11 (NOT 0x01!)
	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	// Write frame contents
	frameData(t.output)

	// Update length field
	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+t.format.TrailerSize))

	// Calculate and write CRC
	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		t.format.Sync,
	})

	// Don't increment sequence - nextSequence is already correct
	// Multiple responses can be sent with the same sequence number
}

// SendCommand sends a command with arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset resets the transport state (useful after USB disconnect/reconnect)
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, uint32(t.format.Dest))

	// Call reset callback if set
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback to immediately flush ACK messages to the link
// This is critical for Klipper's serialqueue which expects ACK before response
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

// Helper methods for atomic operations
func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
