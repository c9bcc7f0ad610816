package display

type State int

const (
	Disconnected State = iota
	Connecting
	Ready
	Busy
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Busy:
		return "busy"
	}
	return "unknown"
}

// PanelInfo is the last known device state, updated from notifications.
type PanelInfo struct {
	State           State
	BatteryLevel    int
	FirmwareVersion string
}
