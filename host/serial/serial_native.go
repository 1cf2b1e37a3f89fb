//go:build !wasm

package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
)

var ErrNoDevice = errors.New("serial: no device given")

// NativePort is a host serial port
type NativePort struct {
	port *serial.Port
	cfg  Config
}

// Open opens the port described by cfg
func Open(cfg *Config) (*NativePort, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return &NativePort{port: port, cfg: *cfg}, nil
}

func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Flush drops whatever the driver has buffered on input
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// Device returns the device path
func (p *NativePort) Device() string {
	return p.cfg.Device
}
