package core

// MotorDriver applies signed PWM values to the wheel motors.
// Magnitude is clamped by the driver to its configured maximum; the sign
// selects direction.
type MotorDriver interface {
	SetPWMs(pwms []int32)
	Enable()
	Disable()
}

// EncoderReader returns the pulses counted on a wheel since the previous
// read and clears that wheel's accumulator.
type EncoderReader interface {
	ReadAndReset(wheel int) int32
}

// HeadingSensor reports yaw in degrees within [-180, 180).
// A Car built with a nil HeadingSensor turns by odometry.
type HeadingSensor interface {
	Yaw() float32
}

// LineSensor is the grayscale line array.
// ReadBitmask has one bit per sensor, 1 = line detected.
// Position is the signed line offset, zero when centred.
type LineSensor interface {
	ReadBitmask() uint16
	Position() float32
}

// RangeSensor reports the distance to the object ahead.
// ok is false when no fresh sample is available.
type RangeSensor interface {
	DistanceMM() (mm uint16, ok bool)
}

// Alerter signals an event to the operator (buzzer, LED)
type Alerter interface {
	Alert(count int)
}

// ByteSender transmits a single byte to a remote peer
type ByteSender interface {
	SendByte(b byte) error
}

// NopMotor discards PWM commands
type NopMotor struct{}

func (NopMotor) SetPWMs([]int32) {}
func (NopMotor) Enable()         {}
func (NopMotor) Disable()        {}

// NopAlerter ignores alerts
type NopAlerter struct{}

func (NopAlerter) Alert(int) {}

// NopSender drops every byte
type NopSender struct{}

func (NopSender) SendByte(byte) error { return nil }

// AlertFunc adapts a function to Alerter
type AlertFunc func(count int)

func (f AlertFunc) Alert(count int) { f(count) }

// SenderFunc adapts a function to ByteSender
type SenderFunc func(b byte) error

func (f SenderFunc) SendByte(b byte) error { return f(b) }
