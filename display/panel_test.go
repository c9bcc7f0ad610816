package display

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

// recordingWriter collects everything written to the device.
type recordingWriter struct {
	mu     sync.Mutex
	writes [][]byte
}

func (w *recordingWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, data)
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func TestNotificationDispatch(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	handleNotification([]byte{0x1a, 0x04, 75}, &p)
	if p.Info().BatteryLevel != 75 {
		t.Errorf("BatteryLevel = %d, want 75", p.Info().BatteryLevel)
	}

	handleNotification([]byte{0x1a, 0x07, 2, 11, 3}, &p)
	if p.Info().FirmwareVersion != "2.11.3" {
		t.Errorf("FirmwareVersion = %q, want \"2.11.3\"", p.Info().FirmwareVersion)
	}

	handleNotification([]byte{0x02, 0xb6, 0x00}, &p)
	if p.Info().State != Ready {
		t.Errorf("State = %v after ready notification, want Ready", p.Info().State)
	}

	// unknown notifications must not panic
	handleNotification([]byte{0xde, 0xad}, &p)
}

func TestPulseInputDeliversEdges(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	var mu sync.Mutex
	var edges []bool
	input := p.PulseInput()
	if err := input.Attach(func(rising bool) {
		mu.Lock()
		edges = append(edges, rising)
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	handleNotification([]byte{0x1a, 0x21, 0x01}, &p)
	handleNotification([]byte{0x1a, 0x21, 0x00}, &p)

	mu.Lock()
	got := append([]bool(nil), edges...)
	mu.Unlock()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("Edges = %v, want [true false]", got)
	}

	if err := input.Detach(); err != nil {
		t.Fatal(err)
	}
	handleNotification([]byte{0x1a, 0x21, 0x01}, &p)
	mu.Lock()
	after := len(edges)
	mu.Unlock()
	if after != 2 {
		t.Errorf("Edge delivered after detach")
	}
}

func TestShowFrameRequiresReadyState(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	b := mustBitmap(t, 32, 1, 1)
	if err := p.ShowFrame(b); err == nil {
		t.Errorf("ShowFrame succeeded while still connecting")
	}
	if w.count() != 0 {
		t.Errorf("ShowFrame wrote to the device while not ready")
	}
}

func TestShowFrameWaitsForFinishedSignal(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)
	p.info.State = Ready

	done := make(chan struct{})
	go func() {
		// keep offering the finished signal until ShowFrame consumes it
		for {
			select {
			case <-done:
				return
			default:
				p.onFinished()
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	b := mustBitmap(t, 32, 1, 1)
	if err := p.ShowFrame(b); err != nil {
		t.Fatalf("ShowFrame failed: %v", err)
	}
	close(done)

	if p.Info().State != Ready {
		t.Errorf("State = %v after frame, want Ready", p.Info().State)
	}
	if w.count() != 1 {
		t.Errorf("Expected one device write, got %d", w.count())
	}
}

func TestReadySignalBeforeReceiverIsKept(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	// the ready notification can land before Connect starts receiving;
	// the signal must still be there when it does
	handleNotification([]byte{0x02, 0xb6, 0x00}, &p)

	select {
	case ok := <-p.connected:
		if !ok {
			t.Errorf("Ready signal delivered as false")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Ready signal was dropped with no receiver waiting")
	}
}

func TestDisconnectWhileConnectingUnblocksConnect(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	p.uninitialise()

	select {
	case ok := <-p.connected:
		if ok {
			t.Errorf("Expected false from a connection that went away")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Disconnect didn't signal the waiting Connect")
	}
	if p.Info().State != Disconnected {
		t.Errorf("State = %v after disconnect, want Disconnected", p.Info().State)
	}
}

func TestClearWritesClearCommand(t *testing.T) {
	w := &recordingWriter{}
	p := initialise(w)

	if err := p.Clear(); err != nil {
		t.Fatal(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) != 1 || !bytes.Equal(w.writes[0], clearPanel()) {
		t.Errorf("Clear wrote %x, want %x", w.writes, clearPanel())
	}
}
