package status

import "github.com/sweeney/weather-station/internal/reading"

// history is a fixed-capacity FIFO of recent readings; the oldest is
// overwritten when full. Not safe for concurrent use; the Tracker holds its lock.
type history struct {
	buf      []reading.Reading
	capacity int
	head     int // next write position
	count    int
}

func newHistory(capacity int) *history {
	return &history{
		buf:      make([]reading.Reading, capacity),
		capacity: capacity,
	}
}

func (h *history) push(r reading.Reading) {
	h.buf[h.head] = r
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// all returns the stored readings, oldest first, without removing them.
func (h *history) all() []reading.Reading {
	if h.count == 0 {
		return nil
	}

	result := make([]reading.Reading, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

func (h *history) len() int {
	return h.count
}
