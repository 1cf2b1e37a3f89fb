package pio

import (
	"testing"

	"trackcar/core"
)

func TestShiftWord(t *testing.T) {
	tests := []struct {
		bits uint8
		want uint32
	}{
		{0x00, 0x007},
		{0x80, 0x00F}, // Q7 goes out first
		{0x01, 0x407}, // Q0 goes out last
		{0xFF, 0x7FF},
		{0xA5, 0x52F},
	}
	for _, tt := range tests {
		if got := shiftWord(tt.bits); got != tt.want {
			t.Errorf("shiftWord(0x%02X): expected 0x%03X, got 0x%03X", tt.bits, tt.want, got)
		}
	}
}

// pinLog records every write so the serial waveform can be replayed
type pinLog struct {
	outputs map[core.GPIOPin]bool
	levels  map[core.GPIOPin]bool
	writes  []pinWrite
}

type pinWrite struct {
	pin   core.GPIOPin
	value bool
}

func newPinLog() *pinLog {
	return &pinLog{outputs: map[core.GPIOPin]bool{}, levels: map[core.GPIOPin]bool{}}
}

func (p *pinLog) ConfigureOutput(pin core.GPIOPin) error {
	p.outputs[pin] = true
	return nil
}

func (p *pinLog) ConfigureInputPullUp(pin core.GPIOPin) error { return nil }

func (p *pinLog) SetPin(pin core.GPIOPin, value bool) error {
	p.levels[pin] = value
	p.writes = append(p.writes, pinWrite{pin, value})
	return nil
}

func (p *pinLog) ReadPin(pin core.GPIOPin) bool { return p.levels[pin] }

// register replays the writes through a model 74HC595
func (p *pinLog) register(data, clock, latch core.GPIOPin) (stored uint8, latches int) {
	var shift uint8
	levels := map[core.GPIOPin]bool{}
	for _, w := range p.writes {
		rising := w.value && !levels[w.pin]
		levels[w.pin] = w.value
		switch {
		case w.pin == clock && rising:
			shift <<= 1
			if levels[data] {
				shift |= 1
			}
		case w.pin == latch && rising:
			stored = shift
			latches++
		}
	}
	return stored, latches
}

func TestGPIOShifter(t *testing.T) {
	pins := newPinLog()
	s, err := NewGPIOShifter(pins, 2, 3, 4)
	if err != nil {
		t.Fatalf("NewGPIOShifter failed: %v", err)
	}
	if len(pins.outputs) != 3 {
		t.Errorf("Expected 3 outputs, got %d", len(pins.outputs))
	}
	if _, ok := s.Last(); ok {
		t.Error("Expected nothing latched yet")
	}

	s.Latch(0x96)
	stored, latches := pins.register(2, 3, 4)
	if stored != 0x96 || latches != 1 {
		t.Errorf("Expected 0x96 latched once, got 0x%02X after %d latches", stored, latches)
	}

	s.Latch(0x21)
	stored, latches = pins.register(2, 3, 4)
	if stored != 0x21 || latches != 2 {
		t.Errorf("Expected 0x21 after 2 latches, got 0x%02X after %d", stored, latches)
	}
	if last, ok := s.Last(); !ok || last != 0x21 {
		t.Errorf("Expected last 0x21, got 0x%02X", last)
	}
}

func TestGPIOShifterDrivesWheelMotors(t *testing.T) {
	pins := newPinLog()
	s, _ := NewGPIOShifter(pins, 2, 3, 4)
	pwm := &nopPWM{}
	m, err := core.NewWheelMotors(pwm, []core.PWMPin{10, 11, 12, 13}, s, nil, 0, 3000)
	if err != nil {
		t.Fatalf("NewWheelMotors failed: %v", err)
	}
	m.Enable()
	m.SetPWMs([]int32{100, -100, 0, 5})

	stored, _ := pins.register(2, 3, 4)
	// forward 01, reverse 10, idle 00, forward 01 from wheel 0 upward
	if stored != 0x49 {
		t.Errorf("Expected direction byte 0x49, got 0x%02X", stored)
	}
}

type nopPWM struct{}

func (nopPWM) ConfigureHardwarePWM(core.PWMPin, uint64) error { return nil }
func (nopPWM) SetDutyCycle(core.PWMPin, uint32) error         { return nil }
func (nopPWM) GetMaxValue() uint32                            { return 1000 }
