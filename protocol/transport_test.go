package protocol

import "testing"

// testFormat is a FrameFormat distinct from telemetry.WireFormat, used to
// confirm Transport frames whatever layout its caller supplies rather than
// assuming a single hardcoded link.
var testFormat = FrameFormat{
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

func buildFrame(format FrameFormat, cmdID uint16, payload []byte) []byte {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	scratch.Output(payload)
	body := scratch.Result()

	msgLen := byte(format.HeaderSize + len(body) + format.TrailerSize)
	frame := []byte{msgLen, format.Dest}
	frame = append(frame, body...)
	crc := CRC16(frame)
	frame = append(frame, byte(crc>>8), byte(crc&0xFF), format.Sync)
	return frame
}

func TestTransportDispatchesDecodedCommand(t *testing.T) {
	var gotCmd uint16
	var gotArg uint32

	handler := func(cmdID uint16, data *[]byte) error {
		gotCmd = cmdID
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		gotArg = v
		return nil
	}

	out := &recordingOutput{}
	tr := NewTransport(out, handler, testFormat)

	argBuf := NewScratchOutput()
	EncodeVLQUint(argBuf, 42)
	frame := buildFrame(testFormat, 7, argBuf.Result())

	tr.Receive(NewSliceInputBuffer(frame))

	if gotCmd != 7 {
		t.Fatalf("expected cmdID 7, got %d", gotCmd)
	}
	if gotArg != 42 {
		t.Fatalf("expected arg 42, got %d", gotArg)
	}
	if len(out.buf) == 0 {
		t.Fatal("expected an ACK to be written")
	}
}

func TestTransportResyncsAfterGarbage(t *testing.T) {
	called := false
	handler := func(cmdID uint16, data *[]byte) error {
		called = true
		return nil
	}

	out := &recordingOutput{}
	tr := NewTransport(out, handler, testFormat)

	// A resync only recovers synchronization at the next trailing sync byte
	// it finds, so a lone garbled frame is consumed resynchronizing to the
	// frame that follows it.
	garbledFrame := buildFrame(testFormat, 9, nil)
	realFrame := buildFrame(testFormat, 3, nil)
	noisy := append([]byte{0x01, 0x02, 0x03}, garbledFrame...)
	noisy = append(noisy, realFrame...)

	tr.Receive(NewSliceInputBuffer(noisy))

	if !called {
		t.Fatal("expected handler to be invoked after resync")
	}
}

type recordingOutput struct {
	buf []byte
}

func (r *recordingOutput) Output(data []byte)       { r.buf = append(r.buf, data...) }
func (r *recordingOutput) CurPosition() int         { return len(r.buf) }
func (r *recordingOutput) Update(pos int, val byte) { r.buf[pos] = val }
func (r *recordingOutput) DataSince(pos int) []byte { return r.buf[pos:] }
