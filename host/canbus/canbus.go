// Package canbus bridges the motion controller to a bench rig over
// SocketCAN: PWM commands go out as one frame, encoder deltas come back as
// another. Both carry four big-endian int16 values.
package canbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Default frame ids
const (
	MotorFrameID   = 0x200
	EncoderFrameID = 0x210
)

// FrameChannels is the number of int16 values in a frame
const FrameChannels = 4

var (
	ErrFrameLength = errors.New("canbus: short frame")
	ErrFrameID     = errors.New("canbus: unexpected frame id")
)

// FrameWriter sends CAN frames
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
}

// FrameReader receives CAN frames
type FrameReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
}

// Bus is a SocketCAN interface opened for both directions
type Bus struct {
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver
}

// Dial opens iface (e.g. "can0" or "vcan0")
func Dial(ctx context.Context, iface string) (*Bus, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: dial %s: %w", iface, err)
	}
	return &Bus{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
		rx:   socketcan.NewReceiver(conn),
	}, nil
}

func (b *Bus) WriteFrame(ctx context.Context, frame can.Frame) error {
	return b.tx.TransmitFrame(ctx, frame)
}

// ReadFrame blocks for the next frame. Cancelling ctx closes nothing; the
// pending receive finishes in the background.
func (b *Bus) ReadFrame(ctx context.Context) (can.Frame, error) {
	type result struct {
		frame can.Frame
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		if b.rx.Receive() {
			ch <- result{frame: b.rx.Frame()}
			return
		}
		err := b.rx.Err()
		if err == nil {
			err = errors.New("canbus: receiver closed")
		}
		ch <- result{err: err}
	}()
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case r := <-ch:
		return r.frame, r.err
	}
}

func (b *Bus) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// EncodeFrame packs up to four values, saturated to int16
func EncodeFrame(id uint32, values []int32) can.Frame {
	f := can.Frame{ID: id, Length: 2 * FrameChannels}
	for i := 0; i < FrameChannels && i < len(values); i++ {
		v := values[i]
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.BigEndian.PutUint16(f.Data[2*i:], uint16(int16(v)))
	}
	return f
}

// DecodeFrame unpacks four int16 values
func DecodeFrame(f can.Frame) ([FrameChannels]int16, error) {
	var out [FrameChannels]int16
	if f.Length < 2*FrameChannels {
		return out, ErrFrameLength
	}
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(f.Data[2*i:]))
	}
	return out, nil
}
