// This package is built with the assumption that the process is only
// connected to a single panel at a time; this will need to be ripped up if
// we want to manage e.g. multiple panels at once
package display

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"tinygo.org/x/bluetooth"
)

type CharacteristicType byte

const (
	Service  CharacteristicType = 0x00
	Writer   CharacteristicType = 0x02
	Notifier CharacteristicType = 0x03
)

func getUUID(t CharacteristicType) bluetooth.UUID {
	return bluetooth.NewUUID([16]byte{
		0x00, 0x00, 0xff, byte(t), 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb,
	})
}

type Connection struct {
	device   bluetooth.Device
	adapter  *bluetooth.Adapter
	writer   bluetooth.DeviceCharacteristic
	notifier bluetooth.DeviceCharacteristic
	panel    Panel
	address  bluetooth.Address
}

func newConnection() (*Connection, error) {
	adapter := bluetooth.DefaultAdapter

	err := adapter.Enable()
	if err != nil {
		slog.Error("Failed to enable Bluetooth: ", "err", err)
		return nil, err
	}

	conn := &Connection{adapter: adapter}
	adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if connected {
			slog.Info("Connected!")
		} else {
			if d.Address == conn.address && conn.panel.IsConnected() {
				slog.Info("Disconnected!")
				conn.panel.uninitialise()
			} else {
				slog.Info("Disconnected event fired but panel is not connected or address doesn't match")
			}
		}
	})

	return conn, nil
}

func FromBluetoothName(name string) (*Connection, error) {
	c, err := newConnection()

	if err != nil {
		slog.Error("Couldn't initialise connection", "error", err)
		return nil, err
	}

	devices := make(chan bluetooth.ScanResult, 1)

	go func() {
		err := c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() == name {
				slog.Info("Found device:",
					"deviceName", result.LocalName(),
				)
				devices <- result
				adapter.StopScan()
			}
		})
		if err != nil {
			slog.Error("Failed to scan for devices:",
				"err", err,
			)
			close(devices)
		}
	}()

	dev, ok := <-devices

	if !ok {
		return nil, errors.New("No devices found")
	}

	c.address = dev.Address
	return c, nil
}

func FromBluetoothAddress(address bluetooth.Address) (*Connection, error) {
	c, err := newConnection()

	if err != nil {
		slog.Error("Couldn't initialise connection", "error", err)
		return nil, err
	}

	c.address = address
	return c, nil
}

func (c *Connection) Write(data []byte) error {
	_, err := c.writer.WriteWithoutResponse(data)

	if err != nil {
		slog.Error("Couldn't write data", "error", err)
	} else {
		slog.Debug("Wrote data to device", "size", len(data))
	}

	return err
}

func (c *Connection) Disconnect() error {
	if c.panel.IsConnected() {
		c.device.Disconnect()
	}
	return nil
}

func (c *Connection) Connect() error {
	if !c.panel.IsConnected() {
		var err error
		// connect to bluetooth device & get characteristics
		if err = c.connect(); err != nil {
			slog.Error("Couldn't connect to panel", "error", err)
			return err
		}

		c.panel = initialise(c)

		// enable notifications from device to receive ready notification/battery info etc
		err = c.notifier.EnableNotifications(func(data []byte) {
			handleNotification(data, &c.panel)
		})

		if err != nil {
			slog.Error("Couldn't enable notifications:",
				"error", err,
			)
			c.device.Disconnect()
			return err
		}

		if !<-c.panel.connected {
			return fmt.Errorf("Panel disconnected before becoming ready")
		}
	}
	return nil
}

func (c *Connection) GetPanel() *Panel {
	return &c.panel
}

func (c *Connection) connect() error {
	slog.Debug("Connecting to device...")
	device, err := c.adapter.Connect(c.address, bluetooth.ConnectionParams{})
	if err != nil {
		slog.Error("Failed to connect to device:",
			"err", err,
		)
		return err
	}

	// Discover the primary service (UUID 0xFF00)
	slog.Debug("Discovering service...")
	services, err := device.DiscoverServices([]bluetooth.UUID{getUUID(Service)})
	if err != nil {
		slog.Error("Failed to discover service:",
			"err", err,
		)
		device.Disconnect()
		return err
	}

	slog.Debug("Discovering characteristics...")
	characteristics, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{getUUID(Writer), getUUID(Notifier)})
	if err != nil {
		slog.Error("Failed to discover characteristics:",
			"err", err,
		)
		device.Disconnect()
		return err
	}
	c.writer = characteristics[0]
	c.notifier = characteristics[1]

	c.device = device
	return nil
}

func hasPrefix(d []byte, p ...byte) bool {
	return len(d) >= len(p) && bytes.Equal(d[:len(p)], p)
}

func handleNotification(d []byte, p *Panel) {
	switch {
	case hasPrefix(d, 0x02, 0xb6, 0x00):
		p.onReady()
	case hasPrefix(d, 0x1a, 0x0f, 0x0c):
		p.onFinished()
	case hasPrefix(d, 0x1a, 0x21) && len(d) >= 3:
		p.onEdge(d[2]&1 == 1)
	case hasPrefix(d, 0x1a, 0x04) && len(d) >= 3:
		p.onBatteryLevelChange(int(d[2]))
	case hasPrefix(d, 0x1a, 0x07) && len(d) >= 5:
		p.onFirmwareVersionReceived(fmt.Sprintf("%v.%v.%v", d[2], d[3], d[4]))
	case hasPrefix(d, 0x01, 0x01):
		slog.Debug("Read command successfully")
	default:
		slog.Info("Received unknown notification:",
			"data", fmt.Sprintf("%x", d),
		)
	}
}
