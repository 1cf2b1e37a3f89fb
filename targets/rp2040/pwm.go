//go:build rp2040

package main

import (
	"errors"
	"machine"

	"trackcar/core"
)

var ErrPWMNotConfigured = errors.New("pwm: pin not configured")

// pwmPeripheral abstracts TinyGo's unexported *pwmGroup
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040PWMDriver implements core.PWMDriver on the eight PWM slices.
// GPIO N belongs to slice (N>>1)&7, channel A for even pins and B for odd.
// All motor pins share one period, so a single counter top is reported.
type RP2040PWMDriver struct {
	slices      map[uint8]uint64 // slice -> period ns
	channels    map[uint32]uint8 // pin -> channel
	peripherals map[uint8]pwmPeripheral
	top         uint32
}

// NewRP2040PWMDriver creates a PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:      make(map[uint8]uint64),
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

// GetMaxValue returns the counter top of the configured slices
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return d.top
}

// ConfigureHardwarePWM attaches pin to its slice with the given period
func (d *RP2040PWMDriver) ConfigureHardwarePWM(pin core.PWMPin, periodNS uint64) error {
	pinNum := uint32(pin)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, ok := d.peripherals[sliceNum]
	if !ok {
		pwm = slicePeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}
	// Both channels of a slice run at the same period; configure it once
	if d.slices[sliceNum] != periodNS {
		if err := pwm.Configure(machine.PWMConfig{Period: periodNS}); err != nil {
			return err
		}
		d.slices[sliceNum] = periodNS
	}
	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return err
	}
	d.channels[pinNum] = channel
	d.top = pwm.Top()
	pwm.Set(channel, 0)
	return nil
}

// SetDutyCycle sets the compare value, 0 to GetMaxValue()
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value uint32) error {
	pinNum := uint32(pin)
	channel, ok := d.channels[pinNum]
	if !ok {
		return ErrPWMNotConfigured
	}
	pwm := d.peripherals[uint8((pinNum>>1)&0x7)]
	if top := pwm.Top(); value > top {
		value = top
	}
	pwm.Set(channel, value)
	return nil
}

func slicePeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	}
	return machine.PWM0
}
