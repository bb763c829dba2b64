package hal

// Clock gives access to a free-running microsecond counter. Both the
// break-to-break pacing math and the slot watchdog are expressed entirely
// in microseconds, so every target's clock is normalized to this unit at
// the HAL boundary rather than carried around as raw ticks.
type Clock interface {
	// NowUS returns the current value of a monotonic, free-running
	// microsecond counter. It wraps at 32 bits, matching the hardware
	// counters it is typically backed by; callers compare with wraparound
	// subtraction, never with a raw greater-than.
	NowUS() uint32
}

// TimerCallback runs when an armed TimerChannel fires.
type TimerCallback func()

// TimerChannel is a single one-shot hardware alarm. The driver owns three
// of these: one for TX pacing (break/MAB/period), one for the RX slot
// watchdog, and one for the once-a-second updates-per-second counter.
type TimerChannel interface {
	// Arm schedules cb to run at absolute time atUs (same clock as Clock).
	// A previously armed, unfired deadline on this channel is replaced.
	Arm(atUs uint32, cb TimerCallback)

	// Cancel disarms the channel. Safe to call when already disarmed.
	Cancel()
}
