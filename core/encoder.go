package core

import (
	"math"
	"sync/atomic"
)

// MaxWheels bounds the number of driven wheels
const MaxWheels = 4

// EncoderCounter accumulates quadrature pulses from pin interrupts.
// Count is safe to call from an ISR; ReadAndReset runs in task context.
type EncoderCounter struct {
	counts [MaxWheels]int32
	invert [MaxWheels]bool
}

// NewEncoderCounter creates a counter; invert flips the sign of the listed wheels
func NewEncoderCounter(invert ...int) *EncoderCounter {
	e := &EncoderCounter{}
	for _, w := range invert {
		if w >= 0 && w < MaxWheels {
			e.invert[w] = true
		}
	}
	return e
}

// Count records one edge on channel A. phaseB is the level of channel B at
// that edge.
func (e *EncoderCounter) Count(wheel int, phaseB bool) {
	if wheel < 0 || wheel >= MaxWheels {
		return
	}
	delta := int32(1)
	if phaseB != e.invert[wheel] {
		delta = -1
	}
	atomic.AddInt32(&e.counts[wheel], delta)
}

// ReadAndReset implements EncoderReader
func (e *EncoderCounter) ReadAndReset(wheel int) int32 {
	if wheel < 0 || wheel >= MaxWheels {
		return 0
	}
	return atomic.SwapInt32(&e.counts[wheel], 0)
}

// Odometry is the per-tick encoder snapshot
type Odometry struct {
	Counts   [MaxWheels]int32
	RPM      [MaxWheels]float32
	CMPS     [MaxWheels]float32
	Distance [MaxWheels]float32 // cm since the last reset

	wheels    int
	countRPM  float32 // counts per tick -> rpm
	rpmToCMPS float32
	periodS   float32
}

func newOdometry(cfg CarConfig) Odometry {
	periodS := float32(cfg.PeriodMS) / 1000
	return Odometry{
		wheels:    cfg.Wheels,
		countRPM:  60 / periodS / cfg.PulsesPerRev,
		rpmToCMPS: 2 * math.Pi * cfg.WheelRadiusCM / 60,
		periodS:   periodS,
	}
}

// update pulls one tick of counts from the encoders
func (o *Odometry) update(enc EncoderReader) {
	for i := 0; i < o.wheels; i++ {
		o.Counts[i] = enc.ReadAndReset(i)
		o.RPM[i] = float32(o.Counts[i]) * o.countRPM
		o.CMPS[i] = o.RPM[i] * o.rpmToCMPS
		o.Distance[i] += o.CMPS[i] * o.periodS
	}
}

func (o *Odometry) clearDistance() {
	for i := range o.Distance {
		o.Distance[i] = 0
	}
}

// Mileage is the mean travelled distance over all wheels
func (o *Odometry) Mileage() float32 {
	if o.wheels == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < o.wheels; i++ {
		sum += o.Distance[i]
	}
	return sum / float32(o.wheels)
}

// LeftDistance is the mean absolute distance of the left-side wheels
func (o *Odometry) LeftDistance() float32 {
	half := o.wheels / 2
	if half == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < half; i++ {
		sum += absf(o.Distance[i])
	}
	return sum / float32(half)
}
