package display

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"glimmer/bitmap"
)

type DeviceWriter interface {
	Write(data []byte) error
}

// Panel drives a connected pixel panel over a DeviceWriter. Notifications
// from the device arrive via the on* callbacks, which run on the transport's
// delivery goroutine.
type Panel struct {
	connected    chan bool
	finished     chan bool
	writer       DeviceWriter
	statusTicker *time.Ticker
	info         PanelInfo
	frameLock    sync.Mutex

	edgeLock    sync.Mutex
	edgeHandler func(rising bool)
}

func initialise(w DeviceWriter) Panel {
	return Panel{
		// buffered so a ready notification that lands before anyone is
		// receiving isn't dropped
		connected:    make(chan bool, 1),
		finished:     make(chan bool),
		statusTicker: time.NewTicker(10 * time.Second),
		writer:       w,
		info: PanelInfo{
			State: Connecting,
		},
	}
}

func (p *Panel) uninitialise() error {
	p.statusTicker.Stop()
	close(p.finished)
	p.info.State = Disconnected

	// fail a Connect that is still waiting for the ready signal
	select {
	case p.connected <- false:
	default:
	}

	return nil
}

func (p *Panel) IsConnected() bool {
	return p.info.State != Disconnected
}

func (p *Panel) Info() PanelInfo {
	return p.info
}

func (p *Panel) pollStatus() error {
	if p.info.State != Disconnected && p.info.State != Busy {
		p.frameLock.Lock()
		defer p.frameLock.Unlock()
		if p.info.State != Disconnected && p.info.State != Busy {
			slog.Debug("Polling panel status")
			data := initPanel()
			data = append(data, queryBatteryStatus()...)
			data = append(data, queryFirmwareVersion()...)
			return p.writer.Write(data)
		}
	}

	// control falls through to this if either of the Ready checks fail
	// the mutex unlock was also deferred so that'll happen if needed
	return fmt.Errorf("Panel is not in ready state")
}

// ShowFrame sends a packed bitmap to the panel and blocks until the device
// reports that the frame has been displayed.
func (p *Panel) ShowFrame(b *bitmap.PackedBitmap) error {
	slog.Debug("Acquiring lock on panel state")
	if p.info.State == Ready {
		p.frameLock.Lock()
		defer p.frameLock.Unlock()
		if p.info.State == Ready {
			p.info.State = Busy

			if err := p.sendFrame(b); err != nil {
				return err
			}

			// The panel sometimes emits an early "frame done" signal right
			// after the row data is written, as well as the real one once
			// the frame is on screen. A small delay here skips the spurious
			// one before we start waiting.
			time.Sleep(100 * time.Millisecond)
			slog.Info("Waiting for panel to finish displaying frame")
			if !<-p.finished {
				return fmt.Errorf("Panel didn't finish displaying the frame")
			}

			slog.Info("Panel finished displaying frame")
			p.info.State = Ready

			return nil
		}
	}

	// Control falls through to this if either of the Ready checks fail.
	// The mutex unlock was also deferred, so that'll happen now if needed
	return fmt.Errorf("Panel is not in ready state")
}

func (p *Panel) sendFrame(b *bitmap.PackedBitmap) error {
	data := initPanel()
	data = append(data, setBrightness(Normal)...)
	if err := appendFrameCommands(b, &data); err != nil {
		return err
	}
	data = append(data, showFrame()...)
	return p.writer.Write(data)
}

// Clear blanks the panel without touching the frame store.
func (p *Panel) Clear() error {
	return p.writer.Write(clearPanel())
}

func (p *Panel) onReady() {
	slog.Info("Panel ready")

	if err := p.pollStatus(); err != nil {
		slog.Error("Couldn't poll status", "error", err)
	}

	// start consuming ticker to periodically refresh device details
	go (func() {
		for range p.statusTicker.C {
			if err := p.pollStatus(); err != nil {
				slog.Error("Couldn't poll status", "error", err)
			}
		}
	})()

	if p.info.State == Connecting {
		p.info.State = Ready
		select {
		case p.connected <- true:
		default:
		}
	}
}

func (p *Panel) onFinished() {
	select {
	case p.finished <- true:
		// unblocks ShowFrame if we're waiting on a frame
	default:
		// otherwise just ignore the signal
	}
}

func (p *Panel) onBatteryLevelChange(level int) {
	p.info.BatteryLevel = level
}

func (p *Panel) onFirmwareVersionReceived(version string) {
	p.info.FirmwareVersion = version
}

func (p *Panel) onEdge(rising bool) {
	p.edgeLock.Lock()
	handler := p.edgeHandler
	p.edgeLock.Unlock()
	if handler != nil {
		handler(rising)
	}
}

// PulseInput exposes the panel's pulse input as an edge source for the
// counter package. Attaching enables edge notifications on the device;
// detaching disables them again.
func (p *Panel) PulseInput() *PulseInput {
	return &PulseInput{panel: p}
}

type PulseInput struct {
	panel *Panel
}

func (i *PulseInput) Attach(handler func(rising bool)) error {
	i.panel.edgeLock.Lock()
	i.panel.edgeHandler = handler
	i.panel.edgeLock.Unlock()

	if err := i.panel.writer.Write(setPulseReporting(true)); err != nil {
		return fmt.Errorf("Couldn't enable pulse reporting:\n%w", err)
	}
	return nil
}

func (i *PulseInput) Detach() error {
	i.panel.edgeLock.Lock()
	i.panel.edgeHandler = nil
	i.panel.edgeLock.Unlock()

	return i.panel.writer.Write(setPulseReporting(false))
}
