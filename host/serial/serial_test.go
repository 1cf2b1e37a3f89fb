package serial

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/rfcomm0")
	if cfg.Baud != 115200 {
		t.Errorf("Expected 115200 baud, got %d", cfg.Baud)
	}
	if cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("Expected a 100ms timeout, got %v", cfg.ReadTimeout)
	}
}

func TestOpenWithoutDevice(t *testing.T) {
	if _, err := Open(nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
	if _, err := Open(&Config{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	go a.Write([]byte("ping"))
	buf := make([]byte, 4)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("Expected ping, got %q", buf)
	}

	go b.Write([]byte("pong"))
	if _, err := io.ReadFull(a, buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf) != "pong" {
		t.Errorf("Expected pong, got %q", buf)
	}
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	a.Close()
	a.Close()
	if _, err := b.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected EOF after the peer closed, got %v", err)
	}
	if _, err := a.Write([]byte{1}); err == nil {
		t.Error("Expected a write on a closed port to fail")
	}
}
