package telemetry

import (
	"testing"

	"github.com/kfriesth/go-dmx512/driver"
	"github.com/kfriesth/go-dmx512/hal"
	"github.com/kfriesth/go-dmx512/protocol"
)

// Minimal hal doubles sufficient to construct a driver.Driver for exercising
// command dispatch; none of these tests depend on precise timing.

type noopClock struct{ us uint32 }

func (c *noopClock) NowUS() uint32 { return c.us }

type noopTimer struct{}

func (noopTimer) Arm(atUs uint32, cb hal.TimerCallback) {}
func (noopTimer) Cancel()                               {}

type noopGPIO struct{}

func (noopGPIO) ConfigureOutput(pin hal.GPIOPin) error       { return nil }
func (noopGPIO) SetPin(pin hal.GPIOPin, high bool) error     { return nil }
func (noopGPIO) GetPin(pin hal.GPIOPin) (bool, error)        { return false, nil }

type noopUART struct{}

func (noopUART) Configure() error                          { return nil }
func (noopUART) SetReceiveHandler(func(hal.ByteEvent))      {}
func (noopUART) WriteByte(b byte) error                     { return nil }
func (noopUART) TxBusy() bool                               { return false }
func (noopUART) SetBreak(assert bool) error                 { return nil }

type noopInterrupt struct{}

func (noopInterrupt) Disable() hal.State         { return 0 }
func (noopInterrupt) Restore(state hal.State)    {}

func newTestDriverForTelemetry() *driver.Driver {
	d := driver.New(driver.Config{
		Clock:     &noopClock{},
		UART:      noopUART{},
		GPIO:      noopGPIO{},
		Interrupt: noopInterrupt{},
		SlotTimer: noopTimer{},
		PPSTimer:  noopTimer{},
		TxTimer:   noopTimer{},
		DirPin:    0,
	})
	if err := d.Init(); err != nil {
		panic(err)
	}
	return d
}

// capturingOutput records every byte sent to it, for asserting on raw
// wire frames in tests.
type capturingOutput struct {
	buf []byte
}

func (c *capturingOutput) Output(data []byte)        { c.buf = append(c.buf, data...) }
func (c *capturingOutput) CurPosition() int          { return len(c.buf) }
func (c *capturingOutput) Update(pos int, val byte)  { c.buf[pos] = val }
func (c *capturingOutput) DataSince(pos int) []byte  { return c.buf[pos:] }

func TestEndpointSetBreakTimeUsDispatch(t *testing.T) {
	d := newTestDriverForTelemetry()
	reg := NewRegistry()
	out := &capturingOutput{}
	dev := NewDevice(reg, out, 256)
	NewEndpoint(reg, d, dev)

	id, ok := reg.Lookup("dmx_set_break_time_us")
	if !ok {
		t.Fatal("dmx_set_break_time_us not registered")
	}

	scratch := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(scratch, 200)
	data := scratch.Result()

	if err := reg.Dispatch(id, &data); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
}

func TestEndpointGetTotalStatisticsSendsResponse(t *testing.T) {
	d := newTestDriverForTelemetry()
	reg := NewRegistry()
	out := &capturingOutput{}
	dev := NewDevice(reg, out, 256)
	NewEndpoint(reg, d, dev)

	id, ok := reg.Lookup("dmx_get_total_statistics")
	if !ok {
		t.Fatal("dmx_get_total_statistics not registered")
	}

	var data []byte
	if err := reg.Dispatch(id, &data); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(out.buf) == 0 {
		t.Fatal("expected a response frame to be written")
	}
}

func TestDeviceRoundTripsACommand(t *testing.T) {
	d := newTestDriverForTelemetry()
	reg := NewRegistry()
	out := &capturingOutput{}
	dev := NewDevice(reg, out, 256)
	NewEndpoint(reg, d, dev)

	id, ok := reg.Lookup("dmx_set_mab_time_us")
	if !ok {
		t.Fatal("dmx_set_mab_time_us not registered")
	}

	scratch := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(scratch, uint32(id))
	protocol.EncodeVLQUint(scratch, 20)
	cmdBytes := scratch.Result()

	frame := buildTestFrame(t, cmdBytes)
	dev.Feed(frame)
	dev.Pump()

	if len(out.buf) == 0 {
		t.Fatal("expected an ACK to be written back")
	}
}

// buildTestFrame wraps cmdData in the same header/CRC/trailer layout
// protocol.Transport.Receive expects, using WireFormat.Dest as the
// sequence byte for the very first frame on a fresh transport.
func buildTestFrame(t *testing.T, cmdData []byte) []byte {
	t.Helper()
	msgLen := byte(2 + len(cmdData) + 3)
	body := append([]byte{msgLen, WireFormat.Dest}, cmdData...)
	crc := protocol.CRC16(body)
	frame := append(body, byte(crc>>8), byte(crc&0xFF), WireFormat.Sync)
	return frame
}
