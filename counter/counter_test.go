package counter

import (
	"errors"
	"sync"
	"testing"
)

// fakeSource delivers edges synchronously to the attached handler.
type fakeSource struct {
	mu       sync.Mutex
	handler  func(rising bool)
	detached bool
}

func (s *fakeSource) Attach(handler func(rising bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return nil
}

func (s *fakeSource) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	return nil
}

func (s *fakeSource) pulse(n int) {
	for i := 0; i < n; i++ {
		s.handler(true)
		s.handler(false)
	}
}

func TestCountsRisingEdgesOnly(t *testing.T) {
	src := &fakeSource{}
	c, err := New(src)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	src.pulse(5)
	if got := c.Count(); got != 5 {
		t.Errorf("Count() = %d after 5 pulses, want 5", got)
	}
}

func TestSetCountAndReset(t *testing.T) {
	src := &fakeSource{}
	c, err := New(src)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.SetCount(40)
	src.pulse(2)
	if got := c.Count(); got != 42 {
		t.Errorf("Count() = %d, want 42", got)
	}

	c.Reset()
	if got := c.Count(); got != 0 {
		t.Errorf("Count() = %d after reset, want 0", got)
	}
	src.pulse(1)
	if got := c.Count(); got != 1 {
		t.Errorf("Count() = %d after reset and one pulse, want 1", got)
	}
}

func TestCloseDetachesAndIgnoresLateEdges(t *testing.T) {
	src := &fakeSource{}
	c, err := New(src)
	if err != nil {
		t.Fatal(err)
	}

	src.pulse(3)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !src.detached {
		t.Errorf("Close didn't detach from the source")
	}

	src.pulse(3)
	if got := c.Count(); got != 3 {
		t.Errorf("Count() = %d after close, want 3", got)
	}

	if err := c.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Second Close() = %v, want ErrClosed", err)
	}
}

func TestConcurrentEdges(t *testing.T) {
	src := &fakeSource{}
	c, err := New(src)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	const workers = 8
	const pulsesPerWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.pulse(pulsesPerWorker)
		}()
	}
	wg.Wait()

	if got := c.Count(); got != workers*pulsesPerWorker {
		t.Errorf("Count() = %d, want %d", got, workers*pulsesPerWorker)
	}
}
