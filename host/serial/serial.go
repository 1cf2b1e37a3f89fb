package serial

import (
	"io"
	"time"
)

// Port is a byte stream to the car. The native implementation wraps
// github.com/tarm/serial; Pipe gives an in-memory pair for tests and the
// simulator.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path of the bluetooth SPP port (e.g. "/dev/rfcomm0", "COM5")
	Device string

	// Baud rate of the HC-05 style module
	Baud int

	// ReadTimeout bounds a single Read; 0 blocks
	ReadTimeout time.Duration
}

// DefaultBaud is the factory rate of the bluetooth modules on the car
const DefaultBaud = 115200

// DefaultConfig returns the usual settings for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
