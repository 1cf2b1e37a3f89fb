package pio

import "trackcar/core"

// GPIOShifter bit-bangs the 74HC595 through a core.GPIODriver. It implements
// core.DirectionLatch and is the fallback when no state machine is free.
type GPIOShifter struct {
	gpio               core.GPIODriver
	data, clock, latch core.GPIOPin
	last               uint8
	latched            bool
}

// NewGPIOShifter configures the three pins as outputs, all low
func NewGPIOShifter(gpio core.GPIODriver, data, clock, latch core.GPIOPin) (*GPIOShifter, error) {
	for _, p := range []core.GPIOPin{data, clock, latch} {
		if err := gpio.ConfigureOutput(p); err != nil {
			return nil, err
		}
		gpio.SetPin(p, false)
	}
	return &GPIOShifter{gpio: gpio, data: data, clock: clock, latch: latch}, nil
}

// Latch shifts bits out and pulses the storage clock
func (s *GPIOShifter) Latch(bits uint8) {
	for _, b := range serialOrder(bits) {
		s.gpio.SetPin(s.data, b)
		s.gpio.SetPin(s.clock, true)
		s.gpio.SetPin(s.clock, false)
	}
	s.gpio.SetPin(s.latch, true)
	s.gpio.SetPin(s.latch, false)
	s.last = bits
	s.latched = true
}

// Last returns the most recent byte latched
func (s *GPIOShifter) Last() (uint8, bool) {
	return s.last, s.latched
}
