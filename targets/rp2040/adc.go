//go:build rp2040

package main

import (
	"errors"
	"machine"

	"trackcar/core"
)

var ErrADCChannel = errors.New("adc: unsupported channel")

// RpAdcDriver implements core.ADCDriver on ADC0-ADC3 (GPIO26-29).
// TinyGo scales the 12-bit conversion to 16 bits.
type RpAdcDriver struct {
	channels map[core.ADCChannel]*machine.ADC
}

// NewRPAdcDriver initializes the ADC block
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{channels: make(map[core.ADCChannel]*machine.ADC)}
}

// ConfigureChannel switches the channel's pad to analog input
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannel) error {
	if _, ok := d.channels[ch]; ok {
		return nil
	}
	var adc machine.ADC
	switch ch {
	case 0:
		adc = machine.ADC{Pin: machine.ADC0}
	case 1:
		adc = machine.ADC{Pin: machine.ADC1}
	case 2:
		adc = machine.ADC{Pin: machine.ADC2}
	case 3:
		adc = machine.ADC{Pin: machine.ADC3}
	default:
		return ErrADCChannel
	}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = &adc
	return nil
}

// ReadRaw runs one conversion
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannel) (uint16, error) {
	adc, ok := d.channels[ch]
	if !ok {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
		adc = d.channels[ch]
	}
	return adc.Get(), nil
}
