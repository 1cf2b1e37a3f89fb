package core

import (
	"errors"
	"math"
)

// Mode is the active motion controller
type Mode uint8

const (
	ModeStop Mode = iota
	ModeStraight
	ModeTurn
	ModeTrack
	modeCount
)

func (m Mode) String() string {
	switch m {
	case ModeStop:
		return "stop"
	case ModeStraight:
		return "straight"
	case ModeTurn:
		return "turn"
	case ModeTrack:
		return "track"
	default:
		return "unknown"
	}
}

var (
	ErrNoMotor    = errors.New("motor driver required")
	ErrNoEncoder  = errors.New("encoder reader required")
	ErrNoLine     = errors.New("line sensor required")
	ErrNoAlerter  = errors.New("alerter required (use NopAlerter)")
	ErrBadWheels  = errors.New("wheel count must be an even number between 2 and 4")
	ErrBadPeriod  = errors.New("control period must be positive")
	ErrBadEncoder = errors.New("pulses per revolution must be positive")
	ErrNoPID      = errors.New("every control loop needs a PID")
)

// CarConfig holds geometry and motion thresholds
type CarConfig struct {
	Wheels        int
	PeriodMS      uint32
	WheelRadiusCM float32
	PulsesPerRev  float32
	WheelbaseCM   float32
	MaxPWM        int32

	TrackSpeed        float32 // default line-follow base speed, cm/s
	DistanceTolerance float32 // cm
	AngleTolerance    float32 // degrees
	UntilDistance     float32 // straight target while waiting for a line event
	WhiteConfirm      int     // consecutive all-white samples
	WhiteMinMileage   float32 // cm travelled before white counts
	StopMarks         int     // consecutive stop-mark samples

	FollowSetpointMM float32 // range kept while following
}

// DefaultCarConfig returns the reference four-wheel chassis
func DefaultCarConfig() CarConfig {
	return CarConfig{
		Wheels:            4,
		PeriodMS:          20,
		WheelRadiusCM:     3.3,
		PulsesPerRev:      1470,
		WheelbaseCM:       24,
		MaxPWM:            3000,
		TrackSpeed:        35,
		DistanceTolerance: 1,
		AngleTolerance:    1,
		UntilDistance:     255,
		WhiteConfirm:      2,
		WhiteMinMileage:   120,
		StopMarks:         1,
		FollowSetpointMM:  240,
	}
}

func (c CarConfig) validate() error {
	if c.Wheels < 2 || c.Wheels > MaxWheels || c.Wheels%2 != 0 {
		return ErrBadWheels
	}
	if c.PeriodMS == 0 {
		return ErrBadPeriod
	}
	if c.PulsesPerRev <= 0 {
		return ErrBadEncoder
	}
	return nil
}

// PIDSet holds the controllers of one car
type PIDSet struct {
	Speed    [MaxWheels]*PID
	Mileage  *PID
	Straight *PID
	Angle    *PID
	Track    *PID
	Follow   *PID
}

// DefaultPIDSet returns working gains for the reference chassis
func DefaultPIDSet() PIDSet {
	var s PIDSet
	for i := range s.Speed {
		s.Speed[i] = NewPID(10, 6, 0, WithIncrementMode(), WithOutputLimit(-3000, 3000))
	}
	s.Mileage = NewPID(1.2, 0, 0.5, WithOutputLimit(-40, 40))
	s.Straight = NewPID(0.8, 0, 0.2, WithOutputLimit(-15, 15))
	s.Angle = NewPID(1.0, 0.05, 0.3, WithOutputLimit(-30, 30), WithDeadzone(0.2))
	s.Track = NewPID(3.0, 0, 1.0, WithOutputLimit(-25, 25))
	s.Follow = NewPID(0.1, 0, 0.05, WithOutputLimit(-20, 20))
	return s
}

func (s *PIDSet) complete(wheels int) bool {
	for i := 0; i < wheels; i++ {
		if s.Speed[i] == nil {
			return false
		}
	}
	return s.Mileage != nil && s.Straight != nil && s.Angle != nil && s.Track != nil && s.Follow != nil
}

func (s *PIDSet) reset() {
	for _, p := range s.Speed {
		if p != nil {
			p.Reset()
		}
	}
	for _, p := range []*PID{s.Mileage, s.Straight, s.Angle, s.Track, s.Follow} {
		if p != nil {
			p.Reset()
		}
	}
}

// Hardware bundles the collaborators of a Car.
// Heading and Range are optional; the rest are required.
type Hardware struct {
	Motor   MotorDriver
	Encoder EncoderReader
	Line    LineSensor
	Heading HeadingSensor
	Range   RangeSensor
	Alert   Alerter
}

// Car is the motion controller. It owns the motion state, the encoder
// snapshot and every control loop.
type Car struct {
	cfg CarConfig
	hw  Hardware
	pid PIDSet

	mode            Mode
	targetSpeed     [MaxWheels]float32
	targetMileage   float32
	targetAngle     float32
	baseSpeed       float32 // line-follow speed of the running route
	trackSpeed      float32
	followTarget    float32
	follow          bool
	turnInitialized bool
	turnArc         float32
	odo             Odometry
	watch           lineWatch
	pwm             [MaxWheels]int32

	control  [modeCount]func(*Car)
	observer func(from, to Mode)
}

// NewCar validates the configuration and wires the collaborators
func NewCar(cfg CarConfig, hw Hardware, pids PIDSet) (*Car, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch {
	case hw.Motor == nil:
		return nil, ErrNoMotor
	case hw.Encoder == nil:
		return nil, ErrNoEncoder
	case hw.Line == nil:
		return nil, ErrNoLine
	case hw.Alert == nil:
		return nil, ErrNoAlerter
	case !pids.complete(cfg.Wheels):
		return nil, ErrNoPID
	}
	c := &Car{
		cfg:          cfg,
		hw:           hw,
		pid:          pids,
		baseSpeed:    cfg.TrackSpeed,
		trackSpeed:   cfg.TrackSpeed,
		followTarget: cfg.TrackSpeed,
		odo:          newOdometry(cfg),
	}
	c.control = [modeCount]func(*Car){
		ModeStop:     (*Car).stopControl,
		ModeStraight: (*Car).straightControl,
		ModeTurn:     (*Car).turnControl,
		ModeTrack:    (*Car).trackControl,
	}
	c.Reset()
	return c, nil
}

// Config returns the car configuration
func (c *Car) Config() CarConfig { return c.cfg }

// Mode returns the active controller
func (c *Car) Mode() Mode { return c.mode }

// Mileage returns the distance travelled in the current segment
func (c *Car) Mileage() float32 { return c.odo.Mileage() }

// Odometry returns the latest encoder snapshot
func (c *Car) Odometry() Odometry { return c.odo }

// TargetSpeeds returns the per-wheel speed setpoints
func (c *Car) TargetSpeeds() []float32 { return c.targetSpeed[:c.cfg.Wheels] }

// PWMs returns the last PWM values sent to the motors
func (c *Car) PWMs() []int32 { return c.pwm[:c.cfg.Wheels] }

// TargetAngle returns the heading held by the straight controller
func (c *Car) TargetAngle() float32 { return c.targetAngle }

// TrackSpeed returns the current line-follow base speed
func (c *Car) TrackSpeed() float32 { return c.trackSpeed }

// SetTrackSpeed sets the line-follow base speed until RestoreTrackSpeed.
// The configured default is untouched.
func (c *Car) SetTrackSpeed(speed float32) {
	c.baseSpeed = speed
	c.trackSpeed = speed
	c.followTarget = speed
}

// SetDefaultTrackSpeed changes the configured default and applies it
func (c *Car) SetDefaultTrackSpeed(speed float32) {
	c.cfg.TrackSpeed = speed
	c.SetTrackSpeed(speed)
}

// RestoreTrackSpeed drops any route override of the line-follow speed
func (c *Car) RestoreTrackSpeed() {
	c.SetTrackSpeed(c.cfg.TrackSpeed)
}

// SetStopMarkCount sets how many consecutive stop-mark samples end MoveUntil
func (c *Car) SetStopMarkCount(n int) {
	if n < 1 {
		n = 1
	}
	c.cfg.StopMarks = n
}

// SetFollow enables range-based speed adaptation in Track mode
func (c *Car) SetFollow(enabled bool) {
	c.follow = enabled
	if !enabled {
		c.trackSpeed = c.baseSpeed
		c.followTarget = c.baseSpeed
	}
}

// Yaw returns the heading, or 0 without a heading sensor
func (c *Car) Yaw() float32 {
	if c.hw.Heading == nil {
		return 0
	}
	return c.hw.Heading.Yaw()
}

// Reset zeroes speeds, control history and the segment odometry, and stops
// the motors. The mode and the held heading are untouched.
func (c *Car) Reset() {
	for i := range c.targetSpeed {
		c.targetSpeed[i] = 0
		c.pwm[i] = 0
	}
	c.pid.reset()
	c.odo.clearDistance()
	c.targetMileage = 0
	c.hw.Motor.SetPWMs(c.pwm[:c.cfg.Wheels])
}

// Enter switches controller. Entering a different mode resets first.
func (c *Car) Enter(m Mode) bool {
	if m >= modeCount || m == c.mode {
		return false
	}
	from := c.mode
	c.mode = m
	c.Reset()
	RecordEvent(EvtModeEnter, uint8(m), Millis(), uint32(from), 0)
	if c.observer != nil {
		c.observer(from, m)
	}
	return true
}

// OnModeChange registers fn to be called after every mode switch
func (c *Car) OnModeChange(fn func(from, to Mode)) {
	c.observer = fn
}

// Halt stops the car and clears control state
func (c *Car) Halt() {
	c.Enter(ModeStop)
	c.Reset()
	c.watch.reset()
}

// Task runs one control period: odometry, mode controller, speed loops
func (c *Car) Task() {
	c.odo.update(c.hw.Encoder)
	c.control[c.mode](c)
	c.updateSpeed()
}

// MoveCM drives mode (Straight or Track) until the segment mileage is within
// tolerance of cm. It returns true once, on the tick the target is reached.
func (c *Car) MoveCM(cm float32, mode Mode) bool {
	if c.mode != mode {
		c.Enter(mode)
		c.targetMileage = cm
	}
	if absf(c.targetMileage-c.odo.Mileage()) <= c.cfg.DistanceTolerance {
		c.Reset()
		c.Enter(ModeStop)
		return true
	}
	return false
}

// SpinTurn rotates in place by deg, or to the absolute heading deg when a
// heading sensor is present.
func (c *Car) SpinTurn(deg float32) bool {
	if c.mode != ModeTurn {
		c.Enter(ModeTurn)
		c.targetAngle = deg
		c.turnInitialized = false
	}

	if c.hw.Heading != nil {
		if absf(wrapAngle(c.targetAngle-c.hw.Heading.Yaw())) <= c.cfg.AngleTolerance {
			c.Reset()
			c.Enter(ModeStop)
			return true
		}
		return false
	}

	if c.odo.LeftDistance() >= c.arcLength(c.targetAngle) {
		c.Reset()
		c.Enter(ModeStop)
		c.targetAngle = 0
		return true
	}
	return false
}

// MoveUntil drives mode until event is seen on the line array
func (c *Car) MoveUntil(mode Mode, event LineEvent) bool {
	if c.mode == ModeStop {
		c.Enter(mode)
		c.watch.reset()
		if mode == ModeStraight {
			c.targetMileage = c.cfg.UntilDistance
		}
	}

	bits := c.hw.Line.ReadBitmask()
	done := false
	switch event {
	case UntilBlackLine:
		done = bits != 0
	case UntilWhiteLine:
		if bits == 0 {
			c.watch.white++
			done = c.watch.white >= c.cfg.WhiteConfirm && c.odo.Mileage() >= c.cfg.WhiteMinMileage
		} else {
			c.watch.white = 0
		}
	case UntilStopMark:
		if IsStopMark(bits) {
			c.watch.stopMark++
			done = c.watch.stopMark >= c.cfg.StopMarks
		} else {
			c.watch.stopMark = 0
		}
	}
	if !done {
		return false
	}
	c.Enter(ModeStop)
	c.hw.Alert.Alert(1)
	c.Reset()
	c.watch.reset()
	return true
}

func (c *Car) arcLength(deg float32) float32 {
	return absf(deg) * math.Pi / 180 * c.cfg.WheelbaseCM / 2
}

func (c *Car) setSides(left, right float32) {
	half := c.cfg.Wheels / 2
	for i := 0; i < c.cfg.Wheels; i++ {
		if i < half {
			c.targetSpeed[i] = left
		} else {
			c.targetSpeed[i] = right
		}
	}
}

func (c *Car) stopControl() {
	c.setSides(0, 0)
}

func (c *Car) straightControl() {
	base := c.pid.Mileage.Calculate(c.targetMileage, c.odo.Mileage())
	var corr float32
	if c.hw.Heading != nil {
		corr = c.pid.Straight.Calculate(0, wrapAngle(c.targetAngle-c.hw.Heading.Yaw()))
	}
	c.setSides(base+corr, base-corr)
}

func (c *Car) turnControl() {
	if c.hw.Heading != nil {
		out := c.pid.Angle.Calculate(0, wrapAngle(c.targetAngle-c.hw.Heading.Yaw()))
		c.setSides(out, -out)
		return
	}
	if !c.turnInitialized {
		c.turnArc = c.arcLength(c.targetAngle)
		c.turnInitialized = true
	}
	out := c.pid.Angle.Calculate(c.turnArc, c.odo.LeftDistance())
	if c.targetAngle > 0 {
		c.setSides(out, -out)
	} else {
		c.setSides(-out, out)
	}
}

func (c *Car) trackControl() {
	if c.follow && c.hw.Range != nil {
		c.adaptTrackSpeed()
	}
	corr := c.pid.Track.Calculate(0, c.hw.Line.Position())
	c.setSides(c.trackSpeed+corr, c.trackSpeed-corr)
}

// adaptTrackSpeed keeps FollowSetpointMM to the object ahead. Without a
// fresh sample the target drifts back to the base speed.
func (c *Car) adaptTrackSpeed() {
	base := c.baseSpeed
	if mm, ok := c.hw.Range.DistanceMM(); ok && mm > 0 {
		c.followTarget = base + c.pid.Follow.Calculate(float32(mm), c.cfg.FollowSetpointMM)
	} else {
		c.followTarget = c.followTarget*0.95 + base*0.05
	}
	c.trackSpeed = 0.8*c.trackSpeed + 0.2*c.followTarget
}

func (c *Car) updateSpeed() {
	for i := 0; i < c.cfg.Wheels; i++ {
		out := c.pid.Speed[i].Calculate(c.targetSpeed[i], c.odo.CMPS[i])
		c.pwm[i] = int32(out)
	}
	c.hw.Motor.SetPWMs(c.pwm[:c.cfg.Wheels])
}

// wrapAngle folds an angle difference into [-180, 180]
func wrapAngle(deg float32) float32 {
	if deg > 180 {
		deg -= 360
	} else if deg < -180 {
		deg += 360
	}
	return deg
}
