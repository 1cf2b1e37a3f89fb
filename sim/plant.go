// Package sim is a kinematic model of the car on a course. The Plant stands
// in for every hardware collaborator so the firmware core runs unchanged on
// the host.
package sim

import (
	"math"

	"trackcar/core"
)

// MaxSpeedCMPS is the wheel speed at full PWM
const MaxSpeedCMPS = 100

// Segment is a straight stretch of black line. Marks are distances along
// the segment where a stop-mark band starts.
type Segment struct {
	X, Y    float64 // start, cm
	Heading float64 // degrees, CCW from +x
	Length  float64 // cm
	Marks   []float64
}

// Geometry describes the line sensor bar and the course paint
type Geometry struct {
	SensorAhead  float64 // bar distance ahead of the axle centre, cm
	SensorPitch  float64 // sensor spacing, cm
	LineWidth    float64
	MarkLength   float64 // stop-mark band length along the line
	MarkHalfSpan float64 // stop-mark band half width across the line
}

// DefaultGeometry matches the competition paint and the 8-channel bar
func DefaultGeometry() Geometry {
	return Geometry{
		SensorAhead:  6,
		SensorPitch:  1.5,
		LineWidth:    1.8,
		MarkLength:   3,
		MarkHalfSpan: 10,
	}
}

// Plant integrates wheel speeds into a pose. PWM takes effect one step
// after it is set.
type Plant struct {
	cfg  core.CarConfig
	geom Geometry

	pwm     [core.MaxWheels]int32
	applied [core.MaxWheels]int32
	speed   [core.MaxWheels]float64
	pending [core.MaxWheels]float64
	enabled bool

	x, y, theta float64
	cmPerCount  float64
	elapsed     uint32

	segments []Segment
	rangeMM  uint16
	rangeOK  bool
}

// NewPlant creates a plant at the origin facing +x
func NewPlant(cfg core.CarConfig, geom Geometry) *Plant {
	return &Plant{
		cfg:        cfg,
		geom:       geom,
		enabled:    true,
		cmPerCount: 2 * math.Pi * float64(cfg.WheelRadiusCM) / float64(cfg.PulsesPerRev),
	}
}

// AddSegment paints a line on the course
func (p *Plant) AddSegment(s Segment) {
	p.segments = append(p.segments, s)
}

// Place moves the car; heading in degrees
func (p *Plant) Place(x, y, heading float64) {
	p.x, p.y = x, y
	p.theta = heading * math.Pi / 180
}

// Pose returns the position in cm and the heading in degrees
func (p *Plant) Pose() (x, y, heading float64) {
	return p.x, p.y, p.theta * 180 / math.Pi
}

// Elapsed returns the simulated time in ms
func (p *Plant) Elapsed() uint32 {
	return p.elapsed
}

// Speed returns the speed of wheel i in cm/s
func (p *Plant) Speed(i int) float64 {
	if i < 0 || i >= core.MaxWheels {
		return 0
	}
	return p.speed[i]
}

// SetRange sets what the ToF sensor reports
func (p *Plant) SetRange(mm uint16, ok bool) {
	p.rangeMM, p.rangeOK = mm, ok
}

// Step advances the model by dtMS
func (p *Plant) Step(dtMS uint32) {
	dt := float64(dtMS) / 1000
	wheels := p.cfg.Wheels
	half := wheels / 2
	var vl, vr float64
	for i := 0; i < wheels; i++ {
		v := 0.0
		if p.enabled && p.cfg.MaxPWM > 0 {
			v = float64(p.applied[i]) * MaxSpeedCMPS / float64(p.cfg.MaxPWM)
		}
		p.speed[i] = v
		p.pending[i] += v * dt / p.cmPerCount
		if i < half {
			vl += v
		} else {
			vr += v
		}
	}
	vl /= float64(half)
	vr /= float64(wheels - half)

	v := (vl + vr) / 2
	p.theta += (vr - vl) / float64(p.cfg.WheelbaseCM) * dt
	sin, cos := math.Sincos(p.theta)
	p.x += v * cos * dt
	p.y += v * sin * dt

	p.applied = p.pwm
	p.elapsed += dtMS
}

// SetPWMs implements core.MotorDriver
func (p *Plant) SetPWMs(pwms []int32) {
	for i := range p.pwm {
		p.pwm[i] = 0
		if i < len(pwms) {
			p.pwm[i] = pwms[i]
		}
	}
}

func (p *Plant) Enable() { p.enabled = true }

func (p *Plant) Disable() {
	p.enabled = false
	p.pwm = [core.MaxWheels]int32{}
	p.applied = p.pwm
}

// ReadAndReset implements core.EncoderReader. Fractions of a count carry
// over to the next read.
func (p *Plant) ReadAndReset(wheel int) int32 {
	if wheel < 0 || wheel >= core.MaxWheels {
		return 0
	}
	n := math.Trunc(p.pending[wheel])
	p.pending[wheel] -= n
	return int32(n)
}

// Yaw implements core.HeadingSensor
func (p *Plant) Yaw() float32 {
	deg := math.Mod(p.theta*180/math.Pi, 360)
	if deg >= 180 {
		deg -= 360
	} else if deg < -180 {
		deg += 360
	}
	return float32(deg)
}

// DistanceMM implements core.RangeSensor
func (p *Plant) DistanceMM() (uint16, bool) {
	return p.rangeMM, p.rangeOK
}

// Bitmask samples the sensor bar, sensor 0 (leftmost) in the top bit
func (p *Plant) Bitmask() uint16 {
	var bits uint16
	sin, cos := math.Sincos(p.theta)
	centre := float64(core.LineSensorCount-1) / 2
	for i := 0; i < core.LineSensorCount; i++ {
		lat := (centre - float64(i)) * p.geom.SensorPitch
		sx := p.x + p.geom.SensorAhead*cos - lat*sin
		sy := p.y + p.geom.SensorAhead*sin + lat*cos
		if p.dark(sx, sy) {
			bits |= 1 << (core.LineSensorCount - 1 - i)
		}
	}
	return bits
}

func (p *Plant) dark(x, y float64) bool {
	for _, s := range p.segments {
		sin, cos := math.Sincos(s.Heading * math.Pi / 180)
		dx, dy := x-s.X, y-s.Y
		along := dx*cos + dy*sin
		side := math.Abs(-dx*sin + dy*cos)
		if along < 0 || along > s.Length {
			continue
		}
		for _, m := range s.Marks {
			if along >= m && along <= m+p.geom.MarkLength && side <= p.geom.MarkHalfSpan {
				return true
			}
		}
		if side <= p.geom.LineWidth/2 {
			return true
		}
	}
	return false
}
