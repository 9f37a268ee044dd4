//go:build linux

package counter

import (
	"errors"
	"testing"
	"time"

	"github.com/warthog618/go-gpiosim"
)

const simOffset = 2

// newSimLineUnit requests a line on a gpio-sim chip. Tests skip when the
// gpio-sim kernel module or configfs is unavailable.
func newSimLineUnit(t *testing.T, edge string) (*gpiosim.Simpleton, *LineUnit) {
	t.Helper()
	sim, err := gpiosim.NewSimpleton(4)
	if err != nil {
		t.Skipf("gpio-sim unavailable: %v", err)
	}
	t.Cleanup(sim.Close)

	u, err := NewLineUnit(sim.DevPath(), simOffset, edge, 0)
	if err != nil {
		t.Fatalf("NewLineUnit: %v", err)
	}
	t.Cleanup(func() { u.Close() })

	// Applying the pull-up bias may raise an edge of its own.
	time.Sleep(20 * time.Millisecond)
	u.Value()
	u.Clear()
	return sim, u
}

// pulse drives one low-then-high cycle on the simulated line.
func pulse(t *testing.T, sim *gpiosim.Simpleton) {
	t.Helper()
	if err := sim.SetPull(simOffset, 0); err != nil {
		t.Fatalf("pull low: %v", err)
	}
	if err := sim.SetPull(simOffset, 1); err != nil {
		t.Fatalf("pull high: %v", err)
	}
}

func waitForValue(t *testing.T, u *LineUnit, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := u.Value()
		if err != nil {
			t.Fatalf("Value: %v", err)
		}
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("value: got %d, want %d", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLineUnitCountsRisingEdges(t *testing.T) {
	sim, u := newSimLineUnit(t, EdgeRising)

	for i := 0; i < 3; i++ {
		pulse(t, sim)
	}
	waitForValue(t, u, 3)

	// Value latches, so a second read without Clear reports the same count.
	if got, _ := u.Value(); got != 3 {
		t.Errorf("second read: got %d, want 3", got)
	}
	if err := u.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	waitForValue(t, u, 0)
}

func TestLineUnitEdgesAfterValueSurviveClear(t *testing.T) {
	sim, u := newSimLineUnit(t, EdgeRising)

	pulse(t, sim)
	waitForValue(t, u, 1)

	pulse(t, sim)
	time.Sleep(50 * time.Millisecond)
	if err := u.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	waitForValue(t, u, 1)
}

func TestLineUnitPausedEdgesAreMissed(t *testing.T) {
	sim, u := newSimLineUnit(t, EdgeRising)

	if err := u.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	pulse(t, sim)
	pulse(t, sim)

	deadline := time.Now().Add(2 * time.Second)
	for u.Missed() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("missed: got %d, want 2", u.Missed())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := u.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got, _ := u.Value(); got != 0 {
		t.Errorf("value: got %d, want 0", got)
	}

	pulse(t, sim)
	waitForValue(t, u, 1)
}

func TestLineUnitThroughAccessor(t *testing.T) {
	sim, u := newSimLineUnit(t, EdgeRising)
	acc := NewAccessor(u, DefaultHighWatermark, discardLogger())

	pulse(t, sim)
	pulse(t, sim)
	waitForValue(t, u, 2)

	got, status := acc.ReadAndReset()
	if status != StatusOK || got != 2 {
		t.Fatalf("ReadAndReset: got (%d, %s), want (2, OK)", got, status)
	}
	got, status = acc.ReadAndReset()
	if status != StatusOK || got != 0 {
		t.Errorf("second ReadAndReset: got (%d, %s), want (0, OK)", got, status)
	}
}

func TestLineUnitClose(t *testing.T) {
	_, u := newSimLineUnit(t, EdgeBoth)

	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := u.Value(); !errors.Is(err, ErrClosed) {
		t.Errorf("Value after Close: got %v, want ErrClosed", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewLineUnitRejectsUnknownEdge(t *testing.T) {
	if _, err := NewLineUnit("gpiochip0", 0, "sideways", 0); err == nil {
		t.Fatal("expected error for unknown edge policy")
	}
}
