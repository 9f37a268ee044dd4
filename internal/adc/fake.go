package adc

import "sync"

// FakeSampler is a test double that returns scripted values per channel.
type FakeSampler struct {
	mu      sync.Mutex
	samples map[Channel][]uint32
	index   map[Channel]int
	errs    map[Channel]error
	calls   int
	closed  bool
}

// NewFakeSampler creates a FakeSampler with no channels configured.
func NewFakeSampler() *FakeSampler {
	return &FakeSampler{
		samples: make(map[Channel][]uint32),
		index:   make(map[Channel]int),
		errs:    make(map[Channel]error),
	}
}

// Script sets the values returned for ch. Each Sample consumes the next
// value; once exhausted the last value repeats.
func (f *FakeSampler) Script(ch Channel, values ...uint32) *FakeSampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[ch] = values
	f.index[ch] = 0
	return f
}

// Fail makes Sample(ch) return err. A nil err clears the failure.
func (f *FakeSampler) Fail(ch Channel, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, ch)
		return
	}
	f.errs[ch] = err
}

// Sample returns the next scripted value for ch.
func (f *FakeSampler) Sample(ch Channel) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if err := f.errs[ch]; err != nil {
		return 0, err
	}
	values, ok := f.samples[ch]
	if !ok || len(values) == 0 {
		return 0, ErrUnknownChannel
	}

	i := f.index[ch]
	if i < len(values)-1 {
		f.index[ch] = i + 1
	}
	return values[i], nil
}

// Calls returns the number of Sample calls so far.
func (f *FakeSampler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSampler) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
