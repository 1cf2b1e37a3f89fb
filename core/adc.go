package core

import "errors"

// CalibState is the progress of an analog line calibration
type CalibState uint8

const (
	CalibIdle CalibState = iota
	CalibBlack
	CalibWait
	CalibWhite
	CalibSuccess
	CalibFailed
)

func (s CalibState) String() string {
	switch s {
	case CalibIdle:
		return "idle"
	case CalibBlack:
		return "black"
	case CalibWait:
		return "wait"
	case CalibWhite:
		return "white"
	case CalibSuccess:
		return "success"
	case CalibFailed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrNoChannels  = errors.New("analog line: no channels")
	ErrLowContrast = errors.New("analog line: black and white too close")
)

const (
	// DefaultOversample is the number of ADC reads averaged per sensor
	DefaultOversample = 4

	// DefaultCalibSamples is the number of sweeps averaged per surface
	DefaultCalibSamples = 32

	// DefaultMinContrast is the smallest black/white gap accepted per sensor
	DefaultMinContrast = 0x1000
)

// AnalogLineConfig describes the wiring of a grayscale array.
//
// With address pins the sensors share Channels[0] behind a mux and sensor i
// is selected by writing i to the pins (bit 0 on AddressPins[0]). Without
// them each sensor has its own channel.
type AnalogLineConfig struct {
	Channels    []ADCChannel
	GPIO        GPIODriver
	AddressPins []GPIOPin
	Sensors     int // mux only; 0 means 1<<len(AddressPins)

	Oversample   uint8
	CalibSamples uint16
	MinContrast  uint16
}

// AnalogLine reads a reflectance array through the ADC and thresholds it
// into the bitmask NewLineArray expects (sensor 0 in the MSB). Thresholds
// sit halfway between the calibrated black and white levels, so either
// polarity of sensor works.
type AnalogLine struct {
	adc   ADCDriver
	cfg   AnalogLineConfig
	count int

	raw   [LineSensorCount]uint16
	black [LineSensorCount]uint16
	white [LineSensorCount]uint16
	mid   [LineSensorCount]uint16

	state        CalibState
	acc          [LineSensorCount]uint32
	pendingBlack [LineSensorCount]uint16
	sweeps       uint16
	errors       uint32
}

// NewAnalogLine configures the channels and address pins. Until a
// calibration succeeds a reading below half scale counts as dark.
func NewAnalogLine(adc ADCDriver, cfg AnalogLineConfig) (*AnalogLine, error) {
	if len(cfg.Channels) == 0 {
		return nil, ErrNoChannels
	}
	count := len(cfg.Channels)
	if len(cfg.AddressPins) > 0 {
		if cfg.GPIO == nil {
			return nil, ErrNoPins
		}
		count = cfg.Sensors
		if count == 0 {
			count = 1 << len(cfg.AddressPins)
		}
		for _, p := range cfg.AddressPins {
			if err := cfg.GPIO.ConfigureOutput(p); err != nil {
				return nil, err
			}
		}
		cfg.Channels = cfg.Channels[:1]
	}
	if count > LineSensorCount {
		count = LineSensorCount
	}
	for _, ch := range cfg.Channels {
		if err := adc.ConfigureChannel(ch); err != nil {
			return nil, err
		}
	}
	if cfg.Oversample == 0 {
		cfg.Oversample = DefaultOversample
	}
	if cfg.CalibSamples == 0 {
		cfg.CalibSamples = DefaultCalibSamples
	}
	if cfg.MinContrast == 0 {
		cfg.MinContrast = DefaultMinContrast
	}

	a := &AnalogLine{adc: adc, cfg: cfg, count: count}
	for i := 0; i < count; i++ {
		a.white[i] = 0xFFFF
		a.mid[i] = 0x8000
	}
	return a, nil
}

// Sensors returns the number of sensors read per sweep
func (a *AnalogLine) Sensors() int {
	return a.count
}

// Sample sweeps every sensor into the raw buffer. A failed read keeps the
// sensor's previous value.
func (a *AnalogLine) Sample() {
	for i := 0; i < a.count; i++ {
		ch := a.cfg.Channels[0]
		if len(a.cfg.AddressPins) > 0 {
			for b, p := range a.cfg.AddressPins {
				a.cfg.GPIO.SetPin(p, i&(1<<b) != 0)
			}
		} else {
			ch = a.cfg.Channels[i]
		}
		var sum uint32
		var n uint32
		for s := uint8(0); s < a.cfg.Oversample; s++ {
			v, err := a.adc.ReadRaw(ch)
			if err != nil {
				a.errors++
				continue
			}
			sum += uint32(v)
			n++
		}
		if n > 0 {
			a.raw[i] = uint16(sum / n)
		}
	}
}

// Raw returns the last sweep
func (a *AnalogLine) Raw() []uint16 {
	return a.raw[:a.count]
}

// ReadErrors returns the number of failed ADC reads
func (a *AnalogLine) ReadErrors() uint32 {
	return a.errors
}

// Bitmask sweeps the array and thresholds it. Pass it to NewLineArray.
func (a *AnalogLine) Bitmask() uint16 {
	a.Sample()
	var bits uint16
	for i := 0; i < a.count; i++ {
		if a.dark(i) {
			bits |= 1 << (LineSensorCount - 1 - i)
		}
	}
	return bits
}

func (a *AnalogLine) dark(i int) bool {
	if a.black[i] <= a.white[i] {
		return a.raw[i] < a.mid[i]
	}
	return a.raw[i] > a.mid[i]
}

// StartCalibration begins averaging the black surface under the array
func (a *AnalogLine) StartCalibration() {
	a.state = CalibBlack
	a.resetAcc()
	Infoln("line calibration: black")
}

// ConfirmWhite moves on to the white surface once black is recorded.
// It returns false in any other state.
func (a *AnalogLine) ConfirmWhite() bool {
	if a.state != CalibWait {
		return false
	}
	a.state = CalibWhite
	a.resetAcc()
	Infoln("line calibration: white")
	return true
}

// CalibState returns the calibration progress
func (a *AnalogLine) CalibState() CalibState {
	return a.state
}

// Calibration returns the black and white levels in use
func (a *AnalogLine) Calibration() (black, white []uint16) {
	return a.black[:a.count], a.white[:a.count]
}

// SetCalibration installs stored levels, e.g. from the configuration
func (a *AnalogLine) SetCalibration(black, white []uint16) error {
	if len(black) < a.count || len(white) < a.count {
		return ErrNoChannels
	}
	for i := 0; i < a.count; i++ {
		if diff(black[i], white[i]) < a.cfg.MinContrast {
			return ErrLowContrast
		}
	}
	for i := 0; i < a.count; i++ {
		a.black[i] = black[i]
		a.white[i] = white[i]
		a.mid[i] = uint16((uint32(black[i]) + uint32(white[i])) / 2)
	}
	return nil
}

// CalibrationTask advances a running calibration by one sweep; register it
// as a periodic task.
func (a *AnalogLine) CalibrationTask() {
	if a.state != CalibBlack && a.state != CalibWhite {
		return
	}
	a.Sample()
	for i := 0; i < a.count; i++ {
		a.acc[i] += uint32(a.raw[i])
	}
	a.sweeps++
	if a.sweeps < a.cfg.CalibSamples {
		return
	}

	var avg [LineSensorCount]uint16
	for i := 0; i < a.count; i++ {
		avg[i] = uint16(a.acc[i] / uint32(a.sweeps))
	}
	if a.state == CalibBlack {
		a.pendingBlack = avg
		a.state = CalibWait
		Infoln("line calibration: black recorded")
		return
	}
	if err := a.SetCalibration(a.pendingBlack[:a.count], avg[:a.count]); err != nil {
		a.state = CalibFailed
		Warnln("line calibration: " + err.Error())
		return
	}
	a.state = CalibSuccess
	Infoln("line calibration: done")
}

func (a *AnalogLine) resetAcc() {
	a.acc = [LineSensorCount]uint32{}
	a.sweeps = 0
}

func diff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
