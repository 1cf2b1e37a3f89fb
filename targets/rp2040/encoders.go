//go:build rp2040

package main

import (
	"machine"

	"trackcar/core"
)

// encoderPins is channel A and channel B of one wheel
type encoderPins struct {
	a, b machine.Pin
}

// attachEncoders counts rising edges of every channel A into enc, signed
// by the level of channel B at the edge
func attachEncoders(enc *core.EncoderCounter, wheels []encoderPins) error {
	for i, w := range wheels {
		wheel := i
		phaseB := w.b
		w.a.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		w.b.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		err := w.a.SetInterrupt(machine.PinRising, func(machine.Pin) {
			enc.Count(wheel, phaseB.Get())
		})
		if err != nil {
			return err
		}
	}
	return nil
}
