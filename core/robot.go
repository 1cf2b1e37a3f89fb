package core

import (
	"errors"

	"trackcar/protocol"
)

// Periodic task ids owned by Robot. Targets register their own tasks from
// TaskUser upward.
const (
	TaskMotion TaskID = iota + 1
	TaskMission
	TaskTimers

	TaskUser TaskID = 8
)

// TimersPeriodMS is the dispatch period of the one-shot timer queue
const TimersPeriodMS = 10

var (
	ErrUnknownRoute = errors.New("unknown route")
	ErrEmptyRoute   = errors.New("route has no actions")
)

// Route is a named mission recipe. Build fills an empty mission.
type Route struct {
	Name  string
	Build func(m *Mission)
}

// RobotParts collects what NewRobot wires together
type RobotParts struct {
	Config   CarConfig
	PIDs     PIDSet
	Hardware Hardware
	Sender   ByteSender
	Timers   *TimerQueue // nil creates a private queue
}

// Robot owns the car, its mission and the task table
type Robot struct {
	Car     *Car
	Mission *Mission
	Tasks   PeriodicScheduler
	Timers  *TimerQueue
	Remote  *CommandRegistry
	Dict    *Dictionary

	routes   []Route
	selected int
	active   bool

	lastByte  byte
	byteFresh bool
	byteHook  func(b byte) bool

	fault string
	reply func(payload []byte) error
}

// NewRobot builds the car and mission and registers the motion, mission
// and timer tasks. Motion runs before Mission inside a period so predicates
// see fresh odometry.
func NewRobot(parts RobotParts) (*Robot, error) {
	car, err := NewCar(parts.Config, parts.Hardware, parts.PIDs)
	if err != nil {
		return nil, err
	}
	mission, err := NewMission(car, parts.Sender)
	if err != nil {
		return nil, err
	}
	r := &Robot{
		Car:     car,
		Mission: mission,
		Timers:  parts.Timers,
		Remote:  NewCommandRegistry(),
		Dict:    NewDictionary(FirmwareVersion),
	}
	if r.Timers == nil {
		r.Timers = &TimerQueue{}
	}
	mission.SetActiveFlag(&r.active)

	period := parts.Config.PeriodMS
	if err := r.Tasks.Register(TaskMotion, "motion", car.Task, period, true); err != nil {
		return nil, err
	}
	if err := r.Tasks.Register(TaskMission, "mission", r.missionTask, period, false); err != nil {
		return nil, err
	}
	if err := r.Tasks.Register(TaskTimers, "timers", r.timersTask, TimersPeriodMS, true); err != nil {
		return nil, err
	}
	if err := r.registerRemote(); err != nil {
		return nil, err
	}
	r.publishConfig(parts.Config)
	return r, nil
}

// AddRoute appends a route and returns its index
func (r *Robot) AddRoute(name string, build func(m *Mission)) int {
	r.routes = append(r.routes, Route{Name: name, Build: build})
	r.Dict.Invalidate()
	return len(r.routes) - 1
}

// Routes returns the registered routes
func (r *Robot) Routes() []Route {
	return r.routes
}

// RouteIndex looks a route up by name
func (r *Robot) RouteIndex(name string) (int, bool) {
	for i, rt := range r.routes {
		if rt.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Select marks a route for the next StartSelected
func (r *Robot) Select(i int) error {
	if i < 0 || i >= len(r.routes) {
		return ErrUnknownRoute
	}
	r.selected = i
	return nil
}

// Selected returns the selected route index
func (r *Robot) Selected() int {
	return r.selected
}

// StartRoute rebuilds the mission from route i and starts it. A running
// mission is stopped first.
func (r *Robot) StartRoute(i int) error {
	if i < 0 || i >= len(r.routes) {
		return ErrUnknownRoute
	}
	if r.fault != "" {
		return ErrShutdown
	}
	if r.Mission.Running() {
		r.Mission.Stop()
	}
	r.selected = i
	r.Car.RestoreTrackSpeed()
	r.Mission.Clear()
	r.Mission.SetLoop(0)
	r.routes[i].Build(r.Mission)
	if !r.Mission.Start() {
		return ErrEmptyRoute
	}
	Infoln("route " + r.routes[i].Name + " started, " + itoa(r.Mission.Len()) + " actions")
	return r.Tasks.Enable(TaskMission, Millis())
}

// StartSelected starts the selected route
func (r *Robot) StartSelected() error {
	return r.StartRoute(r.selected)
}

// StopMission aborts the mission and halts the car
func (r *Robot) StopMission() {
	r.Mission.Stop()
	r.Tasks.Disable(TaskMission)
}

// Active mirrors the mission running flag
func (r *Robot) Active() bool {
	return r.active
}

// Poll runs every due task; call it from the main loop
func (r *Robot) Poll(now uint32) {
	r.Tasks.Process(now)
}

// PutByte stores a byte received from a peer for missions to consume.
// Bytes claimed by the hook are not stored.
func (r *Robot) PutByte(b byte) {
	if r.byteHook != nil && r.byteHook(b) {
		return
	}
	r.lastByte = b
	r.byteFresh = true
}

// SetByteHook installs fn to see every received byte first
func (r *Robot) SetByteHook(fn func(b byte) bool) {
	r.byteHook = fn
}

// TakeByte returns the last received byte once
func (r *Robot) TakeByte() (byte, bool) {
	if !r.byteFresh {
		return 0, false
	}
	r.byteFresh = false
	return r.lastByte, true
}

// ByteIs returns a predicate waiting for b to arrive
func (r *Robot) ByteIs(b byte) func() bool {
	return func() bool {
		if r.byteFresh && r.lastByte == b {
			r.byteFresh = false
			return true
		}
		return false
	}
}

// SetReplier sets where command replies go (normally the link's Send)
func (r *Robot) SetReplier(fn func(payload []byte) error) {
	r.reply = fn
}

// Telemetry snapshots the car state
func (r *Robot) Telemetry() protocol.Telemetry {
	odo := r.Car.Odometry()
	t := protocol.Telemetry{
		Uptime:    Uptime(),
		Mode:      uint8(r.Car.Mode()),
		Cursor:    uint8(r.Mission.Cursor()),
		Loop:      uint8(r.Mission.LoopCount()),
		Running:   r.Mission.Running(),
		Mileage10: int32(r.Car.Mileage() * 10),
		Yaw10:     int32(r.Car.Yaw() * 10),
		Wheels:    uint8(r.Car.Config().Wheels),
	}
	if last, ok := r.Car.hw.Line.(interface{ Last() uint16 }); ok {
		t.Bitmask = last.Last()
	} else {
		t.Bitmask = r.Car.hw.Line.ReadBitmask()
	}
	for i := 0; i < int(t.Wheels) && i < protocol.MaxTelemetryWheels; i++ {
		t.Speed10[i] = int32(odo.CMPS[i] * 10)
	}
	return t
}

func (r *Robot) missionTask() {
	r.Mission.Tick()
	if !r.Mission.Running() {
		r.Tasks.Disable(TaskMission)
	}
}

func (r *Robot) timersTask() {
	r.Timers.Dispatch(Millis())
}
