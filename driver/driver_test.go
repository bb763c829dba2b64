package driver

import (
	"testing"

	"github.com/kfriesth/go-dmx512/hal"
	"github.com/kfriesth/go-dmx512/rdm"
)

func enableInput(td *testDriver) {
	td.d.SetDirection(DirectionInput, true)
}

// S1 — clean DMX frame.
func TestCleanDmxFrame(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	td.feed(44, 0x00, 0x11, 0x22, 0x33)
	td.advanceAndFireSlotWatchdog(1500)

	f, ok := td.d.GetAvailableDmx()
	if !ok {
		t.Fatal("expected a DMX frame")
	}
	if f.Stats.SlotsInPacket != 3 {
		t.Fatalf("expected SlotsInPacket=3, got %d", f.Stats.SlotsInPacket)
	}
	want := []byte{0x00, 0x11, 0x22, 0x33}
	for i, b := range want {
		if f.Data[i] != b {
			t.Fatalf("byte %d: got %#x want %#x", i, f.Data[i], b)
		}
	}
}

// S2 — full universe.
func TestFullUniverse(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	slots := make([]byte, DmxUniverseSize)
	for i := range slots {
		slots[i] = byte(i % 256)
	}
	td.feed(44, append([]byte{0x00}, slots...)...)

	f, ok := td.d.GetAvailableDmx()
	if !ok {
		t.Fatal("expected a DMX frame")
	}
	if f.Stats.SlotsInPacket != DmxUniverseSize {
		t.Fatalf("expected SlotsInPacket=512, got %d", f.Stats.SlotsInPacket)
	}
	for k := 1; k <= DmxUniverseSize; k++ {
		want := byte((k - 1) % 256)
		if f.Data[k] != want {
			t.Fatalf("slot %d: got %#x want %#x", k, f.Data[k], want)
		}
	}
}

func buildRdmRequest(subStartCode, messageLength byte, payload []byte) []byte {
	body := append([]byte{rdm.StartCodeRDM, subStartCode, messageLength}, payload...)
	sum := rdm.Checksum16(body)
	return append(body, byte(sum>>8), byte(sum&0xFF))
}

// S3 — RDM GET.
func TestRdmGet(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	payload := make([]byte, 21)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	pkt := buildRdmRequest(rdm.SubStartCodeMessage, 24, payload)

	td.sendBreak()
	// pkt[0] (the RDM start code) is the first data byte after BREAK; it
	// drives the BREAK->RDM_DATA transition and is stored as Data[0].
	td.feed(44, pkt...)

	f, ok := td.d.GetAvailableRdm()
	if !ok {
		t.Fatal("expected an RDM frame")
	}
	if f.Len != len(pkt) {
		t.Fatalf("expected Len=%d, got %d", len(pkt), f.Len)
	}
	stats := td.d.GetTotalStatistics()
	if stats.RdmPackets != 1 {
		t.Fatalf("expected RdmPackets=1, got %d", stats.RdmPackets)
	}
	if stats.DmxPackets != 0 {
		t.Fatalf("expected DmxPackets=0, got %d", stats.DmxPackets)
	}
}

// S4 — RDM bad checksum: no frame delivered.
func TestRdmBadChecksum(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	payload := make([]byte, 21)
	pkt := buildRdmRequest(rdm.SubStartCodeMessage, 24, payload)
	pkt[len(pkt)-1]++ // corrupt the checksum low byte

	td.sendBreak()
	td.feed(44, pkt...)

	if _, ok := td.d.GetAvailableRdm(); ok {
		t.Fatal("expected no RDM frame to be delivered")
	}
}

// S5 — discovery reply, no BREAK required.
func TestDiscoveryReply(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	var pkt []byte
	for i := 0; i < 7; i++ {
		pkt = append(pkt, rdm.StartCodeDiscovery)
	}
	pkt = append(pkt, rdm.DiscoveryDelimiter)
	euid := make([]byte, rdm.DiscoveryEUIDSize)
	for i := range euid {
		euid[i] = byte(0xAA + i)
	}
	pkt = append(pkt, euid...)
	pkt = append(pkt, 0x01, 0x02, 0x03, 0x04)

	// Discovery starts directly from IDLE; no BREAK precedes it.
	td.clock.nowUs += 44
	td.uart.handler(hal.ByteEvent{Data: pkt[0]})
	td.feed(44, pkt[1:]...)

	f, ok := td.d.GetAvailableRdm()
	if !ok {
		t.Fatal("expected a discovery RDM frame")
	}
	if f.Len != len(pkt) {
		t.Fatalf("expected Len=%d, got %d", len(pkt), f.Len)
	}
	for i, b := range pkt {
		if f.Data[i] != b {
			t.Fatalf("byte %d: got %#x want %#x", i, f.Data[i], b)
		}
	}
}

// A run of 0xFE bytes longer than the discovery-reply buffer must abort
// back to IDLE rather than writing past rc.rdmSlot.Data.
func TestDiscoveryPreambleOverflowAbortsToIdle(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.clock.nowUs += 44
	for i := 0; i < 512; i++ {
		td.uart.handler(hal.ByteEvent{Data: rdm.StartCodeDiscovery})
		td.clock.nowUs += 44
	}

	if _, ok := td.d.GetAvailableRdm(); ok {
		t.Fatal("expected no RDM frame from an oversized discovery preamble")
	}

	// The state machine must have recovered to IDLE, not left mid-discovery
	// or panicked: feeding a fresh, well-formed discovery reply afterward
	// must still succeed.
	var pkt []byte
	pkt = append(pkt, rdm.StartCodeDiscovery, rdm.DiscoveryDelimiter)
	euid := make([]byte, rdm.DiscoveryEUIDSize)
	pkt = append(pkt, euid...)
	pkt = append(pkt, 0x01, 0x02, 0x03, 0x04)

	td.uart.handler(hal.ByteEvent{Data: pkt[0]})
	td.feed(44, pkt[1:]...)

	if _, ok := td.d.GetAvailableRdm(); !ok {
		t.Fatal("expected driver to recover and accept a subsequent discovery reply")
	}
}

// S6 — inter-slot watchdog finalizes a truncated frame.
func TestInterSlotWatchdog(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	td.feed(44, 0x00, 0x11, 0x22)
	td.advanceAndFireSlotWatchdog(2000)

	f, ok := td.d.GetAvailableDmx()
	if !ok {
		t.Fatal("expected a truncated DMX frame")
	}
	if f.Stats.SlotsInPacket != 2 {
		t.Fatalf("expected SlotsInPacket=2, got %d", f.Stats.SlotsInPacket)
	}
	want := []byte{0x00, 0x11, 0x22}
	for i, b := range want {
		if f.Data[i] != b {
			t.Fatalf("byte %d: got %#x want %#x", i, f.Data[i], b)
		}
	}
}

// S7 — TX pacing.
func TestTxPacing(t *testing.T) {
	td := newTestDriver(t)

	td.d.SetBreakTimeUs(100)
	td.d.SetMabTimeUs(12)
	data := make([]byte, 25) // start code + 24 slots
	td.d.SetSendData(data)
	td.d.SetPeriodUs(0)

	wantPeriod := uint32(100 + 12 + 25*44 + 44)
	if wantPeriod < minBreakToBreakUs {
		wantPeriod = minBreakToBreakUs
	}
	if td.d.tx.periodUs != wantPeriod {
		t.Fatalf("expected period=%d, got %d", wantPeriod, td.d.tx.periodUs)
	}

	td.d.SetDirection(DirectionOutput, true)

	// Each send cycle is three timer fires: IDLE->BREAK, BREAK->MAB,
	// MAB->(inline DATA)->IDLE. Always jump the clock to whatever
	// deadline the driver just armed rather than assuming a cadence.
	fireNext := func() {
		if !td.txT.armed {
			t.Fatal("expected tx timer to be armed")
		}
		td.clock.nowUs = td.txT.atUs
		td.txT.fireIfDue(td.clock.nowUs)
	}

	var breakEdges []uint32
	for i := 0; i < 3; i++ {
		fireNext() // IDLE -> BREAK
		breakEdges = append(breakEdges, td.clock.nowUs)
		fireNext() // BREAK -> MAB
		fireNext() // MAB -> (inline DATA) -> IDLE, arms next BREAK
	}

	for i := 1; i < len(breakEdges); i++ {
		gap := breakEdges[i] - breakEdges[i-1]
		if gap != wantPeriod {
			t.Fatalf("expected break-to-break gap %d, got %d", wantPeriod, gap)
		}
	}
}

// Invariant 1: delivered frames always carry a plausible length and the
// correct declared start code.
func TestInvariantFrameLengthAndStartCode(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	td.feed(44, 0x00, 0x01, 0x02)
	td.advanceAndFireSlotWatchdog(2000)

	f, ok := td.d.GetAvailableDmx()
	if !ok {
		t.Fatal("expected a DMX frame")
	}
	if f.Stats.SlotsInPacket < 1 || f.Stats.SlotsInPacket > DmxUniverseSize {
		t.Fatalf("SlotsInPacket out of range: %d", f.Stats.SlotsInPacket)
	}
	if f.Data[0] != rdm.StartCodeDMX {
		t.Fatalf("expected start code %#x, got %#x", rdm.StartCodeDMX, f.Data[0])
	}
}

// Invariant 3: slot_to_slot is never reported below the FIQ-latency floor.
func TestInvariantSlotToSlotFloor(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	// Feed bytes faster than the floor allows.
	td.feed(5, 0x00, 0x01, 0x02)
	td.advanceAndFireSlotWatchdog(2000)

	f, _ := td.d.GetAvailableDmx()
	if f.Stats.SlotToSlot < minSlotToSlotUs {
		t.Fatalf("expected SlotToSlot>=%d, got %d", minSlotToSlotUs, f.Stats.SlotToSlot)
	}
}

// Invariant 8: IsDataChanged is silent iff the frame is identical.
func TestInvariantIsDataChanged(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)

	td.sendBreak()
	td.feed(44, 0x00, 0x01, 0x02)
	td.advanceAndFireSlotWatchdog(2000)

	f, ok := td.d.IsDataChanged()
	if !ok || f == nil {
		t.Fatal("expected the first frame to be reported as changed")
	}

	td.sendBreak()
	td.feed(44, 0x00, 0x01, 0x02)
	td.advanceAndFireSlotWatchdog(2000)

	if _, ok := td.d.IsDataChanged(); ok {
		t.Fatal("expected an identical frame to report no change")
	}

	td.sendBreak()
	td.feed(44, 0x00, 0x01, 0x03)
	td.advanceAndFireSlotWatchdog(2000)

	if _, ok := td.d.IsDataChanged(); !ok {
		t.Fatal("expected a different frame to report a change")
	}
}

// Invariant 7: re-asserting the same direction loses at most one in-flight
// frame.
func TestDirectionIdempotence(t *testing.T) {
	td := newTestDriver(t)
	enableInput(td)
	td.d.SetDirection(DirectionInput, true)

	td.sendBreak()
	td.feed(44, 0x00, 0x01, 0x02)
	td.advanceAndFireSlotWatchdog(2000)

	if _, ok := td.d.GetAvailableDmx(); !ok {
		t.Fatal("expected a frame captured after the repeated SetDirection call to be delivered")
	}
}
