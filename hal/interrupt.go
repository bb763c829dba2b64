package hal

// InterruptController brackets the small critical sections where the
// foreground API touches state that the fast interrupt (RX) or the timer
// interrupt (TX pacing, watchdog) can also touch concurrently. On tinygo
// targets this maps to real CPU interrupt masking; on the host build it
// maps to a mutex guarding the goroutines that stand in for the two
// interrupt contexts.
type InterruptController interface {
	// Disable masks interrupts and returns a token to pass to Restore.
	Disable() State

	// Restore unmasks interrupts back to the state captured by Disable.
	Restore(state State)
}
