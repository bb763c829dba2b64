package ring

import "testing"

func TestRingBasic(t *testing.T) {
	r := New[int](4)

	*r.Reserve() = 1
	if !r.Commit() {
		t.Fatal("expected commit to succeed on empty ring")
	}

	*r.Reserve() = 2
	if !r.Commit() {
		t.Fatal("expected commit to succeed")
	}

	v, ok := r.Pop()
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}

	v, ok = r.Pop()
	if !ok || v != 2 {
		t.Fatalf("expected (2, true), got (%d, %v)", v, ok)
	}

	if _, ok = r.Pop(); ok {
		t.Fatal("expected empty ring to return false")
	}
}

func TestRingOverrunDropsInFlightNotCommitted(t *testing.T) {
	r := New[int](2)

	*r.Reserve() = 1
	r.Commit()
	*r.Reserve() = 2
	r.Commit()

	// Ring is full: committing a third frame must drop it, not clobber
	// the two already-committed, unread frames.
	*r.Reserve() = 3
	if r.Commit() {
		t.Fatal("expected commit to fail when ring is full")
	}
	if r.Dropped() != 1 {
		t.Fatalf("expected Dropped()==1, got %d", r.Dropped())
	}

	v, ok := r.Pop()
	if !ok || v != 1 {
		t.Fatalf("expected first committed frame to survive, got (%d, %v)", v, ok)
	}
	v, ok = r.Pop()
	if !ok || v != 2 {
		t.Fatalf("expected second committed frame to survive, got (%d, %v)", v, ok)
	}
}

func TestRingPeekDoesNotConsume(t *testing.T) {
	r := New[int](2)
	*r.Reserve() = 7
	r.Commit()

	if p := r.Peek(); p == nil || *p != 7 {
		t.Fatalf("expected Peek to return 7, got %v", p)
	}
	if r.Used() != 1 {
		t.Fatalf("expected Peek to not consume, Used()=%d", r.Used())
	}
}
