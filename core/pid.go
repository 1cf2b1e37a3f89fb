package core

// PIDMode selects the discrete PID formulation
type PIDMode uint8

const (
	PIDPosition  PIDMode = iota // absolute output from P, I and D terms
	PIDIncrement                // output accumulates per-tick increments
)

const (
	// defaultOutputBound is the saturation level the position-mode
	// anti-windup check uses when no output limit is configured.
	defaultOutputBound = 3000.0

	defaultDerivativeAlpha = 0.7
	windupDecay            = 0.95
)

// Limits is an inclusive [Min, Max] range
type Limits struct {
	Min float32
	Max float32
}

func (l Limits) clamp(v float32) float32 {
	if v > l.Max {
		return l.Max
	}
	if v < l.Min {
		return l.Min
	}
	return v
}

// PIDConfig is the immutable configuration of a PID controller.
// A nil pointer field means the feature is off.
type PIDConfig struct {
	Mode PIDMode
	Kp   float32
	Ki   float32
	Kd   float32

	OutputLimit        *Limits
	IntegralLimit      *Limits
	Deadzone           *float32
	IntegralSeparation *float32 // integrate only while |error| < threshold
	DerivativeAlpha    *float32 // one-pole low-pass coefficient on the D term
	AntiWindup         bool
	OutputOffset       float32
}

// PIDOption configures a PID at construction time
type PIDOption func(*PIDConfig)

// WithOutputLimit clamps the output to [min, max]
func WithOutputLimit(min, max float32) PIDOption {
	return func(c *PIDConfig) { c.OutputLimit = &Limits{Min: min, Max: max} }
}

// WithIntegralLimit clamps the accumulated integral to [min, max]
func WithIntegralLimit(min, max float32) PIDOption {
	return func(c *PIDConfig) { c.IntegralLimit = &Limits{Min: min, Max: max} }
}

// WithDeadzone ignores errors smaller than dz and shrinks larger ones by dz.
// A non-positive dz leaves the deadzone off.
func WithDeadzone(dz float32) PIDOption {
	return func(c *PIDConfig) {
		if dz > 0 {
			c.Deadzone = &dz
		} else {
			c.Deadzone = nil
		}
	}
}

// WithIntegralSeparation stops integrating while |error| >= threshold.
// A non-positive threshold leaves separation off.
func WithIntegralSeparation(threshold float32) PIDOption {
	return func(c *PIDConfig) {
		if threshold > 0 {
			c.IntegralSeparation = &threshold
		} else {
			c.IntegralSeparation = nil
		}
	}
}

// WithDerivativeFilter enables the derivative low-pass filter. Alpha outside
// (0, 1) keeps the previous coefficient.
func WithDerivativeFilter(alpha float32) PIDOption {
	return func(c *PIDConfig) {
		a := float32(defaultDerivativeAlpha)
		if c.DerivativeAlpha != nil {
			a = *c.DerivativeAlpha
		}
		if alpha > 0 && alpha < 1 {
			a = alpha
		}
		c.DerivativeAlpha = &a
	}
}

// WithoutDerivativeFilter passes the raw derivative through
func WithoutDerivativeFilter() PIDOption {
	return func(c *PIDConfig) { c.DerivativeAlpha = nil }
}

// WithoutAntiWindup disables both windup guards
func WithoutAntiWindup() PIDOption {
	return func(c *PIDConfig) { c.AntiWindup = false }
}

// WithOutputOffset adds a constant feed-forward term
func WithOutputOffset(offset float32) PIDOption {
	return func(c *PIDConfig) { c.OutputOffset = offset }
}

// WithIncrementMode selects the incremental formulation
func WithIncrementMode() PIDOption {
	return func(c *PIDConfig) { c.Mode = PIDIncrement }
}

// PID is a discrete PID controller.
// Anti-windup and the derivative filter (alpha 0.7) are on unless disabled.
type PID struct {
	cfg PIDConfig

	err         float32
	lastErr     float32
	lastLastErr float32
	integral    float32
	output      float32
	lastOutput  float32
	derivative  float32 // filter memory
	offsetDue   bool    // increment mode adds the offset once per run
}

// NewPID creates a PID with the given gains and options
func NewPID(kp, ki, kd float32, opts ...PIDOption) *PID {
	alpha := float32(defaultDerivativeAlpha)
	cfg := PIDConfig{
		Kp:              kp,
		Ki:              ki,
		Kd:              kd,
		DerivativeAlpha: &alpha,
		AntiWindup:      true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PID{cfg: cfg, offsetDue: true}
}

// Config returns a copy of the configuration
func (p *PID) Config() PIDConfig {
	return p.cfg
}

// Output returns the last computed output
func (p *PID) Output() float32 { return p.output }

// Error returns the last processed error
func (p *PID) Error() float32 { return p.err }

// Integral returns the accumulated integral
func (p *PID) Integral() float32 { return p.integral }

// Reset clears history but keeps gains and limits
func (p *PID) Reset() {
	p.err = 0
	p.lastErr = 0
	p.lastLastErr = 0
	p.integral = 0
	p.output = 0
	p.lastOutput = 0
	p.derivative = 0
	p.offsetDue = true
}

// Calculate runs one control step and returns the new output
func (p *PID) Calculate(target, feedback float32) float32 {
	p.err = p.applyDeadzone(target - feedback)
	if p.cfg.Mode == PIDIncrement {
		return p.incremental()
	}
	return p.positional()
}

func (p *PID) positional() float32 {
	c := &p.cfg
	e := p.err
	prop := c.Kp * e

	if p.integrating(e) {
		tentative := prop + c.Ki*p.integral + c.OutputOffset
		hi, lo := p.saturation()
		if !c.AntiWindup || !((tentative >= hi && e > 0) || (tentative <= lo && e < 0)) {
			p.integral += e
		}
		if c.IntegralLimit != nil {
			p.integral = c.IntegralLimit.clamp(p.integral)
		}
	}

	deriv := p.filter(c.Kd * (e - p.lastErr))
	p.output = prop + c.Ki*p.integral + deriv + c.OutputOffset

	if c.OutputLimit != nil {
		p.output = c.OutputLimit.clamp(p.output)
		if c.AntiWindup {
			if (p.output >= c.OutputLimit.Max && e > 0) || (p.output <= c.OutputLimit.Min && e < 0) {
				p.integral *= windupDecay
			}
		}
	}

	p.lastErr = e
	return p.output
}

func (p *PID) incremental() float32 {
	c := &p.cfg
	e := p.err

	delta := c.Kp * (e - p.lastErr)
	if p.integrating(e) {
		delta += c.Ki * e
	}
	delta += p.filter(c.Kd * (e - 2*p.lastErr + p.lastLastErr))

	p.output = p.lastOutput + delta
	if p.offsetDue {
		p.output += c.OutputOffset
		p.offsetDue = false
	}

	if c.OutputLimit != nil {
		if c.AntiWindup {
			if (p.output >= c.OutputLimit.Max && delta > 0) || (p.output <= c.OutputLimit.Min && delta < 0) {
				p.output = p.lastOutput
			}
		}
		p.output = c.OutputLimit.clamp(p.output)
	}

	p.lastLastErr = p.lastErr
	p.lastErr = e
	p.lastOutput = p.output
	return p.output
}

func (p *PID) applyDeadzone(e float32) float32 {
	if p.cfg.Deadzone == nil {
		return e
	}
	dz := *p.cfg.Deadzone
	switch {
	case e > -dz && e < dz:
		return 0
	case e > 0:
		return e - dz
	default:
		return e + dz
	}
}

func (p *PID) integrating(e float32) bool {
	if p.cfg.IntegralSeparation == nil {
		return true
	}
	return absf(e) < *p.cfg.IntegralSeparation
}

func (p *PID) saturation() (hi, lo float32) {
	if p.cfg.OutputLimit != nil {
		return p.cfg.OutputLimit.Max, p.cfg.OutputLimit.Min
	}
	return defaultOutputBound, -defaultOutputBound
}

func (p *PID) filter(raw float32) float32 {
	if p.cfg.DerivativeAlpha == nil {
		return raw
	}
	a := *p.cfg.DerivativeAlpha
	p.derivative = a*raw + (1-a)*p.derivative
	return p.derivative
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
