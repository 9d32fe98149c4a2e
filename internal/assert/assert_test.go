package assert

import "testing"

func TestInvariantPassesSilently(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Invariant(true, ...) panicked: %v", r)
		}
	}()
	Invariant(true, "always-true", nil)
}

func TestInvariantPanicsOnFailure(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Invariant(false, ...) did not panic")
		}
	}()
	Invariant(false, "deliberately-false", nil)
}

func TestUnreachablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Unreachable() did not panic")
		}
	}()
	Unreachable("reached-the-unreachable", nil)
}
