package sim

import (
	"fmt"

	"trackcar/config"
	"trackcar/core"
	"trackcar/missions"
	"trackcar/protocol"
)

// Options configures a simulation
type Options struct {
	Config   *config.Config // nil uses config.Default()
	Geometry *Geometry      // nil uses DefaultGeometry()
	Heading  bool           // fit the IMU
	Range    bool           // fit the ToF sensor
	Segments []Segment
}

// Sim runs the robot against a Plant on a simulated clock
type Sim struct {
	Robot  *core.Robot
	Plant  *Plant
	Line   *core.LineArray
	Camera *protocol.CameraState

	// Bytes the car sent over bluetooth, requests it sent to the camera and
	// the beep counts it asked for
	Sent       []byte
	CameraSent []string
	Alerts     []int

	modes  []core.Mode
	period uint32
	now    uint32
}

// New builds a robot on a plant and registers the competition routes
func New(opts Options) (*Sim, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	geom := DefaultGeometry()
	if opts.Geometry != nil {
		geom = *opts.Geometry
	}

	s := &Sim{
		Plant:  NewPlant(cfg.CarConfig(), geom),
		Camera: &protocol.CameraState{},
		period: cfg.PeriodMS,
	}
	for _, seg := range opts.Segments {
		s.Plant.AddSegment(seg)
	}
	s.Line = core.NewLineArray(s.Plant.Bitmask)

	hw := core.Hardware{
		Motor:   s.Plant,
		Encoder: s.Plant,
		Line:    s.Line,
		Alert:   core.AlertFunc(s.alert),
	}
	if opts.Heading {
		hw.Heading = s.Plant
	}
	if opts.Range {
		hw.Range = s.Plant
	}

	core.SetMillis(0)
	robot, err := core.NewRobot(core.RobotParts{
		Config:   cfg.CarConfig(),
		PIDs:     cfg.PIDs(),
		Hardware: hw,
		Sender:   core.SenderFunc(s.send),
	})
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	s.Robot = robot
	robot.Car.OnModeChange(func(from, to core.Mode) {
		s.modes = append(s.modes, to)
	})
	robot.Tasks.Init(0)

	missions.Register(missions.Env{
		Robot:    robot,
		Line:     s.Line,
		Camera:   s.Camera,
		CameraTx: s.cameraSend,
		Alert:    core.AlertFunc(s.alert),
	})
	return s, nil
}

func (s *Sim) send(b byte) error {
	s.Sent = append(s.Sent, b)
	return nil
}

func (s *Sim) cameraSend(cmd string) error {
	s.CameraSent = append(s.CameraSent, cmd)
	return nil
}

func (s *Sim) alert(n int) {
	s.Alerts = append(s.Alerts, n)
}

// Now returns the simulated time in ms
func (s *Sim) Now() uint32 {
	return s.now
}

// Modes returns every mode entered since New
func (s *Sim) Modes() []core.Mode {
	return s.modes
}

// Step runs one control period: the due tasks, then the plant
func (s *Sim) Step() {
	s.now += s.period
	core.SetMillis(s.now)
	s.Robot.Poll(s.now)
	s.Plant.Step(s.period)
}

// RunUntil steps until done returns true or limitMS of simulated time
// passes. It reports whether done was reached.
func (s *Sim) RunUntil(done func() bool, limitMS uint32) bool {
	end := s.now + limitMS
	for s.now < end {
		s.Step()
		if done() {
			return true
		}
	}
	return false
}

// RunMission starts route name and runs until the mission ends
func (s *Sim) RunMission(name string, limitMS uint32) error {
	i, ok := s.Robot.RouteIndex(name)
	if !ok {
		return fmt.Errorf("sim: route %q: %w", name, core.ErrUnknownRoute)
	}
	if err := s.Robot.StartRoute(i); err != nil {
		return fmt.Errorf("sim: route %q: %w", name, err)
	}
	mission := s.Robot.Mission
	if !s.RunUntil(func() bool { return !mission.Running() }, limitMS) {
		return fmt.Errorf("sim: route %q still running after %d ms", name, limitMS)
	}
	return nil
}
