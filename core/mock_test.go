package core

import (
	"math"
	"testing"
)

type mockMotor struct {
	pwms    []int32
	sets    int
	enabled bool
}

func (m *mockMotor) SetPWMs(p []int32) {
	m.pwms = append(m.pwms[:0], p...)
	m.sets++
}
func (m *mockMotor) Enable()  { m.enabled = true }
func (m *mockMotor) Disable() { m.enabled = false }

type mockEncoder struct {
	counts [MaxWheels]int32
}

func (e *mockEncoder) ReadAndReset(wheel int) int32 {
	c := e.counts[wheel]
	e.counts[wheel] = 0
	return c
}

// sides loads one tick of counts, left wheels first
func (e *mockEncoder) sides(left, right int32) {
	e.counts = [MaxWheels]int32{left, left, right, right}
}

type mockLine struct {
	bits uint16
	pos  float32
}

func (l *mockLine) ReadBitmask() uint16 { return l.bits }
func (l *mockLine) Position() float32   { return l.pos }

type mockHeading struct {
	yaw float32
}

func (h *mockHeading) Yaw() float32 { return h.yaw }

type mockRange struct {
	mm uint16
	ok bool
}

func (r *mockRange) DistanceMM() (uint16, bool) { return r.mm, r.ok }

type mockAlerter struct {
	alerts int
}

func (a *mockAlerter) Alert(count int) { a.alerts += count }

type mockSender struct {
	sent []byte
	err  error
}

func (s *mockSender) SendByte(b byte) error {
	s.sent = append(s.sent, b)
	return s.err
}

type rig struct {
	car     *Car
	motor   *mockMotor
	enc     *mockEncoder
	line    *mockLine
	heading *mockHeading
	rng     *mockRange
	alert   *mockAlerter
}

func newRig(t *testing.T, withHeading bool) *rig {
	t.Helper()
	r := &rig{
		motor: &mockMotor{},
		enc:   &mockEncoder{},
		line:  &mockLine{},
		rng:   &mockRange{},
		alert: &mockAlerter{},
	}
	hw := Hardware{Motor: r.motor, Encoder: r.enc, Line: r.line, Range: r.rng, Alert: r.alert}
	if withHeading {
		r.heading = &mockHeading{}
		hw.Heading = r.heading
	}
	car, err := NewCar(DefaultCarConfig(), hw, DefaultPIDSet())
	if err != nil {
		t.Fatalf("NewCar failed: %v", err)
	}
	r.car = car
	return r
}

// countsFor converts a distance into encoder counts for one tick
func countsFor(cfg CarConfig, cm float32) int32 {
	return int32(math.Round(float64(cm * cfg.PulsesPerRev / (2 * math.Pi * cfg.WheelRadiusCM))))
}

func near(a, b, tol float32) bool {
	return absf(a-b) <= tol
}
