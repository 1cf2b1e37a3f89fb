package core

import "errors"

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the pin interface that board code implements
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin reads the current pin state
	ReadPin(pin GPIOPin) bool
}

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMDriver is the PWM interface that board code implements
type PWMDriver interface {
	// ConfigureHardwarePWM configures a pin for hardware PWM output with the
	// given period in nanoseconds
	ConfigureHardwarePWM(pin PWMPin, periodNS uint64) error

	// SetDutyCycle sets the duty from 0 (off) to GetMaxValue() (fully on)
	SetDutyCycle(pin PWMPin, value uint32) error

	// GetMaxValue returns the counter top of the PWM slice
	GetMaxValue() uint32
}

// DirectionLatch holds the H-bridge direction inputs, two bits per wheel
// (IN1 at bit 2*i, IN2 at bit 2*i+1)
type DirectionLatch interface {
	Latch(bits uint8)
}

var (
	ErrNoPins    = errors.New("no pins given")
	ErrBadMaxPWM = errors.New("max pwm must be positive")
)

// MotorPWMPeriodNS is the motor PWM period (10 kHz)
const MotorPWMPeriodNS = 100000

// WheelMotors drives H-bridge channels from signed PWM values: the sign picks
// the direction bits, the magnitude scales to the PWM counter.
// It implements MotorDriver.
type WheelMotors struct {
	pwm     PWMDriver
	pins    []PWMPin
	dir     DirectionLatch
	gpio    GPIODriver
	standby GPIOPin
	maxPWM  int32
	enabled bool
	bits    uint8
}

// NewWheelMotors configures one PWM pin per wheel. gpio may be nil when the
// bridge has no standby pin.
func NewWheelMotors(pwm PWMDriver, pins []PWMPin, dir DirectionLatch, gpio GPIODriver, standby GPIOPin, maxPWM int32) (*WheelMotors, error) {
	if len(pins) == 0 || len(pins) > MaxWheels {
		return nil, ErrNoPins
	}
	if maxPWM <= 0 {
		return nil, ErrBadMaxPWM
	}
	for _, p := range pins {
		if err := pwm.ConfigureHardwarePWM(p, MotorPWMPeriodNS); err != nil {
			return nil, err
		}
	}
	if gpio != nil {
		if err := gpio.ConfigureOutput(standby); err != nil {
			return nil, err
		}
	}
	return &WheelMotors{pwm: pwm, pins: pins, dir: dir, gpio: gpio, standby: standby, maxPWM: maxPWM}, nil
}

// SetPWMs applies one signed value per wheel. Values are clamped to
// [-maxPWM, maxPWM]; zero brakes the channel to coast.
func (w *WheelMotors) SetPWMs(pwms []int32) {
	top := w.pwm.GetMaxValue()
	var bits uint8
	for i, p := range w.pins {
		var v int32
		if i < len(pwms) {
			v = pwms[i]
		}
		if v > w.maxPWM {
			v = w.maxPWM
		} else if v < -w.maxPWM {
			v = -w.maxPWM
		}
		switch {
		case v > 0:
			bits |= 1 << (2 * i)
		case v < 0:
			bits |= 2 << (2 * i)
			v = -v
		}
		duty := uint32(uint64(v) * uint64(top) / uint64(w.maxPWM))
		if !w.enabled {
			duty = 0
		}
		w.pwm.SetDutyCycle(p, duty)
	}
	if !w.enabled {
		bits = 0
	}
	if bits != w.bits && w.dir != nil {
		w.dir.Latch(bits)
	}
	w.bits = bits
}

// Enable releases the bridge from standby
func (w *WheelMotors) Enable() {
	w.enabled = true
	if w.gpio != nil {
		w.gpio.SetPin(w.standby, true)
	}
}

// Disable zeroes every channel and puts the bridge in standby
func (w *WheelMotors) Disable() {
	w.enabled = false
	for _, p := range w.pins {
		w.pwm.SetDutyCycle(p, 0)
	}
	if w.dir != nil {
		w.dir.Latch(0)
	}
	w.bits = 0
	if w.gpio != nil {
		w.gpio.SetPin(w.standby, false)
	}
}

// Directions returns the last latched direction bits
func (w *WheelMotors) Directions() uint8 {
	return w.bits
}

// GPIOLineReader configures pins (leftmost first) as pulled-up inputs and
// returns a bitmask reader for NewLineArray. A dark surface reads low when
// activeLow is set.
func GPIOLineReader(gpio GPIODriver, pins []GPIOPin, activeLow bool) (func() uint16, error) {
	if len(pins) == 0 || len(pins) > LineSensorCount {
		return nil, ErrNoPins
	}
	for _, p := range pins {
		if err := gpio.ConfigureInputPullUp(p); err != nil {
			return nil, err
		}
	}
	return func() uint16 {
		var bits uint16
		for i, p := range pins {
			if gpio.ReadPin(p) != activeLow {
				bits |= 1 << (LineSensorCount - 1 - i)
			}
		}
		return bits
	}, nil
}

// GPIOOutput returns a setter for pin, e.g. for NewBeeper
func GPIOOutput(gpio GPIODriver, pin GPIOPin) (func(on bool), error) {
	if err := gpio.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	return func(on bool) { gpio.SetPin(pin, on) }, nil
}
