//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/vl53l1x"
)

var ErrToFInit = errors.New("vl53l1x: sensor did not respond")

const (
	tofBudgetUS = 20000
	tofPeriodMS = 25
	tofMaxRange = 4000 // mm; larger readings are out of range
	tofStaleMS  = 100
)

// Range polls a VL53L1X in continuous mode. It implements core.RangeSensor.
type Range struct {
	dev   vl53l1x.Device
	mm    uint16
	fresh bool
	at    uint32
}

// NewRange configures the sensor for short distance ranging
func NewRange(bus *machine.I2C) (*Range, error) {
	r := &Range{dev: vl53l1x.New(bus)}
	if !r.dev.Configure(true) {
		return nil, ErrToFInit
	}
	r.dev.SetDistanceMode(vl53l1x.SHORT)
	r.dev.SetMeasurementTimingBudget(tofBudgetUS)
	r.dev.StartContinuous(tofPeriodMS)
	return r, nil
}

// Task picks up a finished measurement, if any
func (r *Range) Task(now uint32) {
	mm := r.dev.Read(false)
	if mm == 0 {
		if now-r.at > tofStaleMS {
			r.fresh = false
		}
		return
	}
	if mm > tofMaxRange {
		r.fresh = false
		return
	}
	r.mm = mm
	r.fresh = true
	r.at = now
}

// DistanceMM implements core.RangeSensor
func (r *Range) DistanceMM() (uint16, bool) {
	return r.mm, r.fresh
}
