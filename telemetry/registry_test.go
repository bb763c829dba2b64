package telemetry

import "testing"

func TestRegistryRegisterAndDispatch(t *testing.T) {
	reg := NewRegistry()

	var called bool
	id := reg.Register("test_command", "arg=%u", func(data *[]byte) error {
		called = true
		return nil
	})

	if id != 0 {
		t.Fatalf("expected first command to have ID 0, got %d", id)
	}

	var data []byte
	if err := reg.Dispatch(id, &data); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}

	if err := reg.Dispatch(999, &data); err == nil {
		t.Fatal("expected an error for an unknown command id")
	}
}

func TestRegistryIDsAreSequentialAndStable(t *testing.T) {
	reg := NewRegistry()

	id1 := reg.Register("a", "", func(data *[]byte) error { return nil })
	id2 := reg.Register("b", "", func(data *[]byte) error { return nil })
	again := reg.Register("a", "", func(data *[]byte) error { return nil })

	if id1 != 0 || id2 != 1 {
		t.Fatalf("expected sequential ids 0,1, got %d,%d", id1, id2)
	}
	if again != id1 {
		t.Fatalf("re-registering a name should return its existing id, got %d want %d", again, id1)
	}
}

func TestRegistryRespondersHaveNoHandler(t *testing.T) {
	reg := NewRegistry()

	respID := reg.RegisterResponse("some_state", "value=%u")
	var data []byte
	if err := reg.Dispatch(respID, &data); err == nil {
		t.Fatal("expected dispatching a response (no handler) to fail")
	}
}
