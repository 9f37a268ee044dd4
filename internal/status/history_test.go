package status

import (
	"testing"

	"github.com/sweeney/weather-station/internal/reading"
)

func pulses(rs []reading.Reading) []int32 {
	out := make([]int32, len(rs))
	for i, r := range rs {
		out[i] = r.PulseCount
	}
	return out
}

func TestHistoryEmpty(t *testing.T) {
	h := newHistory(3)
	if h.len() != 0 {
		t.Errorf("len: got %d, want 0", h.len())
	}
	if got := h.all(); got != nil {
		t.Errorf("all: got %v, want nil", got)
	}
}

func TestHistoryOrder(t *testing.T) {
	h := newHistory(3)
	h.push(reading.Reading{PulseCount: 1})
	h.push(reading.Reading{PulseCount: 2})

	got := pulses(h.all())
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("all: got %v, want [1 2]", got)
	}
	// all does not drain
	if h.len() != 2 {
		t.Errorf("len after all: got %d, want 2", h.len())
	}
}

func TestHistoryOverwritesOldest(t *testing.T) {
	h := newHistory(3)
	for i := int32(1); i <= 5; i++ {
		h.push(reading.Reading{PulseCount: i})
	}

	got := pulses(h.all())
	want := []int32{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("all: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("all[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
	if h.len() != 3 {
		t.Errorf("len: got %d, want 3", h.len())
	}
}
