package canbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.einride.tech/can"

	"trackcar/core"
)

// WriteTimeout bounds one motor frame transmit
const WriteTimeout = 10 * time.Millisecond

// MotorBridge implements core.MotorDriver by sending PWM frames
type MotorBridge struct {
	w       FrameWriter
	id      uint32
	enabled bool

	mu      sync.Mutex
	lastErr error
	sent    uint32
}

// NewMotorBridge sends on id (MotorFrameID for the standard rig)
func NewMotorBridge(w FrameWriter, id uint32) *MotorBridge {
	return &MotorBridge{w: w, id: id}
}

func (m *MotorBridge) SetPWMs(pwms []int32) {
	if !m.enabled {
		return
	}
	m.send(pwms)
}

func (m *MotorBridge) Enable() {
	m.enabled = true
}

// Disable sends one all-zero frame and mutes further commands
func (m *MotorBridge) Disable() {
	m.enabled = false
	m.send(nil)
}

func (m *MotorBridge) send(pwms []int32) {
	ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
	defer cancel()
	err := m.w.WriteFrame(ctx, EncodeFrame(m.id, pwms))

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastErr = err
		core.Warnln("canbus: " + err.Error())
		return
	}
	m.sent++
}

// Err returns the last transmit error
func (m *MotorBridge) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Sent returns the number of frames transmitted
func (m *MotorBridge) Sent() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// EncoderFeed implements core.EncoderReader from encoder frames. Run
// accumulates deltas in the background; ReadAndReset drains them.
type EncoderFeed struct {
	id     uint32
	counts [core.MaxWheels]atomic.Int32
	frames atomic.Uint32
	bad    atomic.Uint32
}

// NewEncoderFeed accepts frames with id (EncoderFrameID for the standard rig)
func NewEncoderFeed(id uint32) *EncoderFeed {
	return &EncoderFeed{id: id}
}

// Feed adds the deltas of one frame. Frames with another id are ignored.
func (e *EncoderFeed) Feed(f can.Frame) error {
	if f.ID != e.id {
		return ErrFrameID
	}
	deltas, err := DecodeFrame(f)
	if err != nil {
		e.bad.Add(1)
		return err
	}
	for i, d := range deltas {
		e.counts[i].Add(int32(d))
	}
	e.frames.Add(1)
	return nil
}

// Run feeds frames from r until ctx is done or r fails
func (e *EncoderFeed) Run(ctx context.Context, r FrameReader) error {
	for {
		f, err := r.ReadFrame(ctx)
		if err != nil {
			return err
		}
		e.Feed(f)
	}
}

func (e *EncoderFeed) ReadAndReset(wheel int) int32 {
	if wheel < 0 || wheel >= core.MaxWheels {
		return 0
	}
	return e.counts[wheel].Swap(0)
}

// Frames returns the number of accepted frames
func (e *EncoderFeed) Frames() uint32 {
	return e.frames.Load()
}

// Malformed returns the number of short frames
func (e *EncoderFeed) Malformed() uint32 {
	return e.bad.Load()
}
