//go:build rp2040

package main

import (
	"machine"

	"trackcar/protocol"
)

const uartRingSize = 256

// uartPort moves bytes from TinyGo's UART buffer into a ring that the
// protocol layer consumes as an InputBuffer
type uartPort struct {
	uart *machine.UART
	ring *protocol.Ring
}

func newUARTPort(uart *machine.UART, baud uint32, tx, rx machine.Pin) (*uartPort, error) {
	err := uart.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       tx,
		RX:       rx,
	})
	if err != nil {
		return nil, err
	}
	return &uartPort{uart: uart, ring: protocol.NewRing(uartRingSize)}, nil
}

// pump drains the UART receive buffer; bytes beyond the ring are dropped
func (p *uartPort) pump() {
	for p.uart.Buffered() > 0 {
		b, err := p.uart.ReadByte()
		if err != nil {
			return
		}
		p.ring.Put(b)
	}
}

// Write implements io.Writer for the link
func (p *uartPort) Write(data []byte) (int, error) {
	return p.uart.Write(data)
}

// writeLine sends s followed by a newline
func (p *uartPort) writeLine(s string) error {
	if _, err := p.uart.Write([]byte(s)); err != nil {
		return err
	}
	_, err := p.uart.Write([]byte{'\n'})
	return err
}
