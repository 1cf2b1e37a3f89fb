// Package config loads the car configuration from JSON and converts it into
// core settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"trackcar/core"
)

// PID loop names used as keys of Config.PID
const (
	LoopSpeed    = "speed"
	LoopMileage  = "mileage"
	LoopStraight = "straight"
	LoopAngle    = "angle"
	LoopTrack    = "track"
	LoopFollow   = "follow"
)

// PIDGains configures one control loop. A zero Max leaves the output
// unlimited.
type PIDGains struct {
	Kp         float32 `json:"kp"`
	Ki         float32 `json:"ki"`
	Kd         float32 `json:"kd"`
	Max        float32 `json:"max"`
	Deadzone   float32 `json:"deadzone,omitempty"`
	Separation float32 `json:"separation,omitempty"`
	Offset     float32 `json:"offset,omitempty"`
	Increment  bool    `json:"increment,omitempty"`
}

// LinkConfig describes the bluetooth serial port on the host
type LinkConfig struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}

// CANConfig describes the bench SocketCAN bridge
type CANConfig struct {
	Interface string `json:"interface"`
	MotorID   uint32 `json:"motor_id"`
	EncoderID uint32 `json:"encoder_id"`
}

// Config is the complete car configuration
type Config struct {
	Wheels        int     `json:"wheels"`
	PeriodMS      uint32  `json:"period_ms"`
	WheelRadiusCM float32 `json:"wheel_radius_cm"`
	PulsesPerRev  float32 `json:"pulses_per_rev"`
	WheelbaseCM   float32 `json:"wheelbase_cm"`
	MaxPWM        int32   `json:"max_pwm"`

	TrackSpeed        float32 `json:"track_speed"`
	DistanceTolerance float32 `json:"distance_tolerance"`
	AngleTolerance    float32 `json:"angle_tolerance"`
	UntilDistance     float32 `json:"until_distance"`
	WhiteConfirm      int     `json:"white_confirm"`
	WhiteMinMileage   float32 `json:"white_min_mileage"`
	StopMarks         int     `json:"stop_marks"`
	FollowSetpointMM  float32 `json:"follow_setpoint_mm"`

	PID  map[string]PIDGains `json:"pid"`
	Link LinkConfig          `json:"link"`
	CAN  CANConfig           `json:"can"`
}

// defaultGains are the tuned loops of the reference chassis
var defaultGains = map[string]PIDGains{
	LoopSpeed:    {Kp: 10, Ki: 6, Max: 3000, Increment: true},
	LoopMileage:  {Kp: 1.2, Kd: 0.5, Max: 40},
	LoopStraight: {Kp: 0.8, Kd: 0.2, Max: 15},
	LoopAngle:    {Kp: 1.0, Ki: 0.05, Kd: 0.3, Max: 30, Deadzone: 0.2},
	LoopTrack:    {Kp: 3.0, Kd: 1.0, Max: 25},
	LoopFollow:   {Kp: 0.1, Kd: 0.05, Max: 20},
}

// Load parses a JSON configuration and fills in defaults
func Load(jsonData []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Load(data)
}

// Default returns the reference four-wheel car
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	def := core.DefaultCarConfig()

	if cfg.Wheels == 0 {
		cfg.Wheels = def.Wheels
	}
	if cfg.PeriodMS == 0 {
		cfg.PeriodMS = def.PeriodMS
	}
	if cfg.WheelRadiusCM == 0 {
		cfg.WheelRadiusCM = def.WheelRadiusCM
	}
	if cfg.PulsesPerRev == 0 {
		cfg.PulsesPerRev = def.PulsesPerRev
	}
	if cfg.WheelbaseCM == 0 {
		cfg.WheelbaseCM = def.WheelbaseCM
	}
	if cfg.MaxPWM == 0 {
		cfg.MaxPWM = def.MaxPWM
	}
	if cfg.TrackSpeed == 0 {
		cfg.TrackSpeed = def.TrackSpeed
	}
	if cfg.DistanceTolerance == 0 {
		cfg.DistanceTolerance = def.DistanceTolerance
	}
	if cfg.AngleTolerance == 0 {
		cfg.AngleTolerance = def.AngleTolerance
	}
	if cfg.UntilDistance == 0 {
		cfg.UntilDistance = def.UntilDistance
	}
	if cfg.WhiteConfirm == 0 {
		cfg.WhiteConfirm = def.WhiteConfirm
	}
	if cfg.WhiteMinMileage == 0 {
		cfg.WhiteMinMileage = def.WhiteMinMileage
	}
	if cfg.StopMarks == 0 {
		cfg.StopMarks = def.StopMarks
	}
	if cfg.FollowSetpointMM == 0 {
		cfg.FollowSetpointMM = def.FollowSetpointMM
	}

	// Loops missing from the file keep the reference gains
	if cfg.PID == nil {
		cfg.PID = map[string]PIDGains{}
	}
	for name, gains := range defaultGains {
		if _, ok := cfg.PID[name]; !ok {
			cfg.PID[name] = gains
		}
	}

	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 115200
	}
	if cfg.CAN.Interface == "" {
		cfg.CAN.Interface = "can0"
	}
	if cfg.CAN.MotorID == 0 {
		cfg.CAN.MotorID = 0x200
	}
	if cfg.CAN.EncoderID == 0 {
		cfg.CAN.EncoderID = 0x210
	}
}

// Validate rejects unknown loop names and impossible geometry
func (c *Config) Validate() error {
	for name := range c.PID {
		if _, ok := defaultGains[name]; !ok {
			return fmt.Errorf("config: unknown pid loop %q", name)
		}
	}
	if c.Wheels < 2 || c.Wheels > core.MaxWheels || c.Wheels%2 != 0 {
		return fmt.Errorf("config: wheels=%d: %w", c.Wheels, core.ErrBadWheels)
	}
	if c.MaxPWM <= 0 {
		return fmt.Errorf("config: max_pwm=%d: %w", c.MaxPWM, core.ErrBadMaxPWM)
	}
	return nil
}

// CarConfig converts to the motion controller configuration
func (c *Config) CarConfig() core.CarConfig {
	return core.CarConfig{
		Wheels:            c.Wheels,
		PeriodMS:          c.PeriodMS,
		WheelRadiusCM:     c.WheelRadiusCM,
		PulsesPerRev:      c.PulsesPerRev,
		WheelbaseCM:       c.WheelbaseCM,
		MaxPWM:            c.MaxPWM,
		TrackSpeed:        c.TrackSpeed,
		DistanceTolerance: c.DistanceTolerance,
		AngleTolerance:    c.AngleTolerance,
		UntilDistance:     c.UntilDistance,
		WhiteConfirm:      c.WhiteConfirm,
		WhiteMinMileage:   c.WhiteMinMileage,
		StopMarks:         c.StopMarks,
		FollowSetpointMM:  c.FollowSetpointMM,
	}
}

// PIDs builds a fresh controller set
func (c *Config) PIDs() core.PIDSet {
	var set core.PIDSet
	for i := 0; i < c.Wheels && i < core.MaxWheels; i++ {
		set.Speed[i] = c.pid(LoopSpeed)
	}
	set.Mileage = c.pid(LoopMileage)
	set.Straight = c.pid(LoopStraight)
	set.Angle = c.pid(LoopAngle)
	set.Track = c.pid(LoopTrack)
	set.Follow = c.pid(LoopFollow)
	return set
}

func (c *Config) pid(name string) *core.PID {
	g, ok := c.PID[name]
	if !ok {
		g = defaultGains[name]
	}
	var opts []core.PIDOption
	if g.Max > 0 {
		opts = append(opts, core.WithOutputLimit(-g.Max, g.Max))
	}
	if g.Deadzone > 0 {
		opts = append(opts, core.WithDeadzone(g.Deadzone))
	}
	if g.Separation > 0 {
		opts = append(opts, core.WithIntegralSeparation(g.Separation))
	}
	if g.Offset != 0 {
		opts = append(opts, core.WithOutputOffset(g.Offset))
	}
	if g.Increment {
		opts = append(opts, core.WithIncrementMode())
	}
	return core.NewPID(g.Kp, g.Ki, g.Kd, opts...)
}

// Gains returns the gains of one loop
func (c *Config) Gains(name string) (PIDGains, bool) {
	g, ok := c.PID[name]
	return g, ok
}
