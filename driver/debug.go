package driver

// DebugWriter receives human-readable warning lines. It is called from
// foreground (B) context only, never from F or I, so it may safely block
// or allocate.
type DebugWriter func(string)

const debugRingSize = 16

// debugEvent is a single post-mortem entry captured from F or I context.
// Capture is a plain ring write (no allocation, no lock) so it is safe to
// call from either preempting context; draining happens later from B.
type debugEvent struct {
	code  uint8
	atUs  uint32
	value uint32
}

// Warning codes recorded into the ring by F/I context code.
const (
	warnNone uint8 = iota
	warnTxDrainForcedStop
	warnUartClockFallback
	warnSlotWatchdogTruncated
	warnRingOverrun
)

var warnNames = map[uint8]string{
	warnTxDrainForcedStop:    "tx_drain_forced_stop",
	warnUartClockFallback:    "uart_clock_fallback",
	warnSlotWatchdogTruncated: "slot_watchdog_truncated",
	warnRingOverrun:          "ring_overrun",
}

type debugRing struct {
	events [debugRingSize]debugEvent
	head   int
}

func (r *debugRing) record(code uint8, atUs, value uint32) {
	r.events[r.head] = debugEvent{code: code, atUs: atUs, value: value}
	r.head = (r.head + 1) % debugRingSize
}

// RecordUartClockFallback lets target init code (outside this package, run
// from B context before the receiver is armed) surface the one warning this
// package cannot detect itself: the UART's baud divisor clamped instead of
// landing on DMX512's exact 250kbaud, because the CPU clock doesn't divide
// evenly. atUs is the uptime at init; value is whatever the caller passes
// (both targets pass the requested baud rate).
func (d *Driver) RecordUartClockFallback(atUs, value uint32) {
	d.debug.record(warnUartClockFallback, atUs, value)
}

// SetDebugWriter installs a handler for warning-class conditions. It must
// be called from foreground context; the writer itself runs on whatever
// goroutine calls DrainWarnings, never from the timer or UART callbacks.
func (d *Driver) SetDebugWriter(w DebugWriter) {
	d.debugWriter = w
}

// DrainWarnings flushes every warning recorded since the last call,
// formatting each with the teacher's plain string-concatenation style
// rather than fmt, and delivers them to the installed DebugWriter. Call
// this periodically from foreground context (e.g. alongside the PPS
// tick); F and I context never call it.
func (d *Driver) DrainWarnings() {
	if d.debugWriter == nil {
		return
	}
	for i := 0; i < debugRingSize; i++ {
		idx := (d.debug.head + i) % debugRingSize
		ev := d.debug.events[idx]
		if ev.code == warnNone {
			continue
		}
		d.debug.events[idx] = debugEvent{}
		name, ok := warnNames[ev.code]
		if !ok {
			name = "unknown"
		}
		d.debugWriter(name + " at=" + utoa(ev.atUs) + " value=" + utoa(ev.value))
	}
}

func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
