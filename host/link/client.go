// Package link is the host side of the bluetooth link: it sends remote
// commands to the car and decodes the frames the car sends back.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"trackcar/host/serial"
	"trackcar/protocol"
)

var ErrClosed = errors.New("link: closed")

// Client talks to one car over a serial port
type Client struct {
	port serial.Port

	mu   sync.Mutex // guards link and tx
	link *protocol.Link
	tx   bytes.Buffer

	writeMu sync.Mutex

	telemetry chan protocol.Telemetry
	bytes     chan byte
	pong      chan struct{}
	identify  chan identifyChunk
	shutdown  chan string

	done    chan struct{}
	readErr error
	closeMu sync.Once
}

// Dial opens the serial port and starts the receiver
func Dial(cfg *serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// New wraps an open port and starts the receiver
func New(port serial.Port) *Client {
	c := &Client{
		port:      port,
		telemetry: make(chan protocol.Telemetry, 16),
		bytes:     make(chan byte, 16),
		pong:      make(chan struct{}, 1),
		identify:  make(chan identifyChunk, 1),
		shutdown:  make(chan string, 4),
		done:      make(chan struct{}),
	}
	// Packets are framed into tx under mu and written to the port outside it
	c.link = protocol.NewLink(&c.tx, protocol.PacketDirToCar, c.handle)
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	ring := protocol.NewRing(4 * protocol.PacketMax)
	buf := make([]byte, protocol.PacketMax)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			ring.Write(buf[:n])
			c.mu.Lock()
			c.link.Receive(ring)
			c.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				c.readErr = err
			}
			return
		}
	}
}

// handle runs with mu held
func (c *Client) handle(payload []byte) error {
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return err
	}
	switch id {
	case protocol.RespPong:
		select {
		case c.pong <- struct{}{}:
		default:
		}
	case protocol.RespTelemetry:
		t, err := protocol.DecodeTelemetry(&payload)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		offer(c.telemetry, t)
	case protocol.RespByte:
		b, err := protocol.DecodeByte(&payload)
		if err != nil {
			return err
		}
		offer(c.bytes, b)
	case protocol.RespIdentify:
		offset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		data, err := protocol.DecodeVLQBytes(&payload)
		if err != nil {
			return fmt.Errorf("identify: %w", err)
		}
		offer(c.identify, identifyChunk{offset: offset, data: append([]byte(nil), data...)})
	case protocol.RespShutdown:
		reason, err := protocol.DecodeVLQBytes(&payload)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		offer(c.shutdown, string(reason))
	default:
		return fmt.Errorf("link: unknown response %d", id)
	}
	return nil
}

// offer queues v, dropping the oldest entry when the reader lags
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Telemetry delivers status frames; old frames are dropped if unread
func (c *Client) Telemetry() <-chan protocol.Telemetry {
	return c.telemetry
}

// Bytes delivers raw bytes sent by running missions
func (c *Client) Bytes() <-chan byte {
	return c.bytes
}

// Shutdowns delivers the reason of every shutdown the car reports
func (c *Client) Shutdowns() <-chan string {
	return c.shutdown
}

// Done is closed when the receiver stops
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the read error that stopped the receiver, if any
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}

func (c *Client) send(id uint16, args []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	err := c.link.SendCommand(id, args)
	pkt := append([]byte(nil), c.tx.Bytes()...)
	c.tx.Reset()
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("link: send %d: %w", id, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.port.Write(pkt); err != nil {
		return fmt.Errorf("link: write: %w", err)
	}
	return nil
}

// Start builds and starts route i on the car
func (c *Client) Start(route int) error {
	return c.send(protocol.CmdStart, protocol.AppendVLQUint(nil, uint32(route)))
}

// Stop aborts the running mission
func (c *Client) Stop() error {
	return c.send(protocol.CmdStop, nil)
}

// Select marks route i without starting it
func (c *Client) Select(route int) error {
	return c.send(protocol.CmdSelect, protocol.AppendVLQUint(nil, uint32(route)))
}

// SendByte delivers a raw byte to the car's missions
func (c *Client) SendByte(b byte) error {
	return c.send(protocol.CmdByte, []byte{b})
}

// SetTrackSpeed sets the line-follow speed in cm/s
func (c *Client) SetTrackSpeed(cmps float32) error {
	return c.send(protocol.CmdTrackSpeed, protocol.AppendVLQInt(nil, int32(cmps*10)))
}

// SetStopMarks sets how many consecutive stop-mark samples end a segment
func (c *Client) SetStopMarks(n int) error {
	return c.send(protocol.CmdStopMarks, protocol.AppendVLQUint(nil, uint32(n)))
}

// SetFollow switches range-based speed adaptation
func (c *Client) SetFollow(on bool) error {
	var b byte
	if on {
		b = 1
	}
	return c.send(protocol.CmdFollow, []byte{b})
}

// EmergencyStop shuts the car down until ClearShutdown
func (c *Client) EmergencyStop() error {
	return c.send(protocol.CmdEmergency, nil)
}

// ClearShutdown leaves the shutdown state
func (c *Client) ClearShutdown() error {
	return c.send(protocol.CmdClearFault, nil)
}

// Ping measures the round trip to the car
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	select {
	case <-c.pong:
	default:
	}
	start := time.Now()
	if err := c.send(protocol.CmdPing, nil); err != nil {
		return 0, err
	}
	select {
	case <-c.pong:
		return time.Since(start), nil
	case <-c.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, fmt.Errorf("link: ping: %w", ctx.Err())
	}
}

// Stats returns the link counters
func (c *Client) Stats() protocol.LinkStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link.Stats()
}

// Close closes the port and waits for the receiver
func (c *Client) Close() error {
	var err error
	c.closeMu.Do(func() {
		err = c.port.Close()
		<-c.done
	})
	return err
}
