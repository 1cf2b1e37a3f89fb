//go:build rp2040

package main

import (
	"machine"

	"trackcar/core"
)

// RPGPIODriver implements core.GPIODriver on the RP2040 pads
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

// ConfigureInputPullUp configures a pin as an input with pull-up
func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if pin > 29 {
		return core.ErrNoPins
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = p
	return nil
}

// SetPin drives an output. Unconfigured pins become outputs first.
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.configuredPins[pin]
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		p = d.configuredPins[pin]
	}
	p.Set(value)
	return nil
}

// ReadPin reads a configured pin; unconfigured pins read low
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	p, ok := d.configuredPins[pin]
	if !ok {
		return false
	}
	return p.Get()
}
