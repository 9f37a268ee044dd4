package counter

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadAndResetReturnsCountAndClears(t *testing.T) {
	unit := NewSimUnit()
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())

	unit.Edge(37)

	got, status := acc.ReadAndReset()
	if status != StatusOK {
		t.Fatalf("status: got %s, want OK", status)
	}
	if got != 37 {
		t.Errorf("count: got %d, want 37", got)
	}

	// No new edges: next read is zero.
	got, status = acc.ReadAndReset()
	if status != StatusOK || got != 0 {
		t.Errorf("second read: got (%d, %s), want (0, OK)", got, status)
	}

	if unit.Paused() {
		t.Error("unit should be resumed after read-and-reset")
	}
}

// recordingUnit logs the order of Unit calls.
type recordingUnit struct {
	calls []string
	value int32
}

func (r *recordingUnit) Pause() error {
	r.calls = append(r.calls, "pause")
	return nil
}

func (r *recordingUnit) Clear() error {
	r.calls = append(r.calls, "clear")
	return nil
}

func (r *recordingUnit) Resume() error {
	r.calls = append(r.calls, "resume")
	return nil
}

func (r *recordingUnit) Value() (int32, error) {
	r.calls = append(r.calls, "read")
	return r.value, nil
}

func (r *recordingUnit) Close() error { return nil }

func TestReadAndResetOrder(t *testing.T) {
	unit := &recordingUnit{value: 5}
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())

	acc.ReadAndReset()

	want := []string{"pause", "read", "clear", "resume"}
	if len(unit.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", unit.calls, want)
	}
	for i := range want {
		if unit.calls[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, unit.calls[i], want[i])
		}
	}
}

func TestReadAndResetIntervals(t *testing.T) {
	// Edges injected strictly between consecutive calls are reported exactly.
	rng := rand.New(rand.NewSource(1))
	unit := NewSimUnit()
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())

	for i := 0; i < 500; i++ {
		n := rng.Intn(int(DefaultHighWatermark) + 1)
		unit.Edge(n)
		got, status := acc.ReadAndReset()
		if status != StatusOK {
			t.Fatalf("interval %d: status %s", i, status)
		}
		if got != int32(n) {
			t.Fatalf("interval %d: got %d, want %d", i, got, n)
		}
	}
}

func TestReadAndResetConcurrentEdgesNeverDoubleCounted(t *testing.T) {
	unit := NewSimUnit()
	acc := NewAccessor(unit, 1<<30, discardLogger())

	const total = 20000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			unit.Edge(1)
		}
	}()

	var counted int64
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			n, _ := acc.ReadAndReset()
			counted += int64(n)
		}
	}
	n, _ := acc.ReadAndReset()
	counted += int64(n)

	if counted+int64(unit.Missed()) != total {
		t.Errorf("counted %d + missed %d != injected %d", counted, unit.Missed(), total)
	}
}

func TestReadAndResetPausedEdgesAreDropped(t *testing.T) {
	unit := NewSimUnit()
	unit.Pause()
	unit.Edge(4)
	unit.Resume()
	unit.Edge(2)

	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())
	got, _ := acc.ReadAndReset()
	if got != 2 {
		t.Errorf("count: got %d, want 2", got)
	}
	if unit.Missed() != 4 {
		t.Errorf("missed: got %d, want 4", unit.Missed())
	}
}

func TestReadAndResetBounds(t *testing.T) {
	tests := []struct {
		name       string
		raw        int32
		want       int32
		wantStatus Status
	}{
		{"zero", 0, 0, StatusOK},
		{"at watermark", 100, 100, StatusOK},
		{"above watermark", 150, 100, StatusOverflow},
		{"negative", -3, 0, StatusOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := NewSimUnit()
			unit.Set(tt.raw)
			acc := NewAccessor(unit, 100, discardLogger())

			got, status := acc.ReadAndReset()
			if got != tt.want {
				t.Errorf("count: got %d, want %d", got, tt.want)
			}
			if status != tt.wantStatus {
				t.Errorf("status: got %s, want %s", status, tt.wantStatus)
			}
			if got < 0 || got > acc.HighWatermark() {
				t.Errorf("count %d outside [0, %d]", got, acc.HighWatermark())
			}
		})
	}
}

func TestReadAndResetReadError(t *testing.T) {
	unit := NewSimUnit()
	unit.Edge(9)
	unit.ValueError = errors.New("simulated read error")
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())

	got, status := acc.ReadAndReset()
	if status != StatusReadError {
		t.Errorf("status: got %s, want READ_ERROR", status)
	}
	if got != 0 {
		t.Errorf("count: got %d, want 0", got)
	}
	if unit.Paused() {
		t.Error("unit must be resumed even when the read fails")
	}
}

func TestReadAndResetControlError(t *testing.T) {
	unit := NewSimUnit()
	unit.Edge(3)
	unit.PauseError = errors.New("simulated pause error")
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())

	got, status := acc.ReadAndReset()
	if status != StatusControlError {
		t.Errorf("status: got %s, want CONTROL_ERROR", status)
	}
	if got != 3 {
		t.Errorf("count: got %d, want 3", got)
	}
}

func TestReadAndResetControlErrorWinsOverOverflow(t *testing.T) {
	unit := NewSimUnit()
	unit.Set(150)
	unit.PauseError = errors.New("simulated pause error")
	acc := NewAccessor(unit, 100, discardLogger())

	got, status := acc.ReadAndReset()
	if status != StatusControlError {
		t.Errorf("status: got %s, want CONTROL_ERROR", status)
	}
	if got != 100 {
		t.Errorf("count: got %d, want clamped 100", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusOK, "OK"},
		{StatusReadError, "READ_ERROR"},
		{StatusControlError, "CONTROL_ERROR"},
		{StatusOverflow, "OVERFLOW"},
		{Status(42), "STATUS(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String(): got %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestAccessorClose(t *testing.T) {
	unit := NewSimUnit()
	acc := NewAccessor(unit, DefaultHighWatermark, discardLogger())
	if err := acc.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !unit.Closed() {
		t.Error("unit should be closed")
	}
}
