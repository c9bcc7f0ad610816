package display

// Command builders for the panel's serial protocol. Each builder returns the
// raw bytes for one command; callers concatenate them into a single write.

const (
	Esc = 0x1B
	GS  = 0x1D
	US  = 0x1F
)

type Brightness byte

const (
	Dim    Brightness = 0x01
	Normal Brightness = 0x03
	Bright Brightness = 0x04
)

func initPanel() []byte {
	return []byte{Esc, 0x40}
}

func setBrightness(b Brightness) []byte {
	return []byte{US, 0x11, 0x02, byte(b)}
}

// frameHeader announces a batch of packed rows: strideWords 32-bit words per
// row, rows rows of pixel data following immediately after.
func frameHeader(strideWords byte, rows uint16) []byte {
	return []byte{
		GS, 0x76, 0x30, 0x00,
		strideWords, 0x00,
		byte(rows & 0xFF), byte(rows >> 8),
	}
}

func showFrame() []byte {
	return []byte{Esc, 0x73}
}

func clearPanel() []byte {
	return []byte{Esc, 0x63}
}

// setPulseReporting turns the panel's pulse input notifications on or off.
func setPulseReporting(enabled bool) []byte {
	flag := byte(0x00)
	if enabled {
		flag = 0x01
	}
	return []byte{US, 0x12, 0x01, flag}
}

func queryBatteryStatus() []byte {
	return []byte{US, 0x11, 0x08}
}

func queryFirmwareVersion() []byte {
	return []byte{US, 0x11, 0x07}
}
