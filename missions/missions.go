// Package missions holds the competition routes. Each route is a builder
// that fills a core.Mission; Register installs them on a Robot.
package missions

import (
	"trackcar/core"
	"trackcar/protocol"
)

// Route names
const (
	Probe        = "probe"
	OutAndBack   = "out_and_back"
	FigureEight  = "figure_eight"
	FigureEight4 = "figure_eight_x4"
	Lap          = "lap"
	TwoLaps      = "two_laps"
	Overtake     = "overtake"
	Relay        = "relay"
	RelayResume  = "relay_resume"
	Ward         = "ward"
)

// Bluetooth bytes exchanged between the leading and the following car
const (
	ByteLap       byte = '1'
	ByteTwoLaps   byte = '2'
	ByteOvertake  byte = '3'
	ByteRelay     byte = '4'
	ByteReconnect byte = 'R'
	ByteTest      byte = 'T'
	ByteStop      byte = 'S'
	ByteCalibrate byte = 'C'
)

// BaseSpeed is the lap speed in cm/s
const BaseSpeed = 40

// StopMarkClearance is tracked after a stop mark so it is not counted twice
const StopMarkClearance = 40

// Env carries what routes need beyond the mission builder. Line, Camera,
// CameraTx, Alert and Calib may be nil; routes depending on them are then
// skipped.
type Env struct {
	Robot    *core.Robot
	Line     *core.LineArray
	Camera   *protocol.CameraState
	CameraTx func(cmd string) error
	Alert    core.Alerter
	Calib    *core.AnalogLine // analog gray array, calibrated by ByteCalibrate
}

// Register adds every route env can support and installs the bluetooth
// byte triggers. It returns the number of routes added.
func Register(env Env) int {
	r := env.Robot
	n := 0
	add := func(name string, build func(m *core.Mission)) {
		r.AddRoute(name, build)
		n++
	}

	add(Probe, probe)
	add(OutAndBack, outAndBack)
	add(FigureEight, figureEight(1))
	add(FigureEight4, figureEight(4))

	if env.Line != nil {
		l := &laps{car: r.Car, line: env.Line}
		add(Lap, l.lap)
		add(TwoLaps, l.twoLaps)
		add(Overtake, l.overtake)
		add(Relay, l.relay(r))
		add(RelayResume, l.relayResume)
	}

	if env.Camera != nil && env.CameraTx != nil {
		w := &ward{cam: env.Camera, tx: env.CameraTx}
		add(Ward, w.build)
	}

	r.SetByteHook(func(b byte) bool { return handleByte(env, b) })
	return n
}

// handleByte starts routes on the leader's bytes. Unclaimed bytes stay
// available to WaitUntil predicates.
func handleByte(env Env, b byte) bool {
	r := env.Robot
	start := func(name string) bool {
		i, ok := r.RouteIndex(name)
		if !ok {
			return false
		}
		if err := r.StartRoute(i); err != nil {
			core.Warnln("route " + name + ": " + err.Error())
		}
		return true
	}

	switch b {
	case ByteLap:
		return start(Lap)
	case ByteTwoLaps:
		return start(TwoLaps)
	case ByteOvertake:
		return start(Overtake)
	case ByteRelay:
		return start(Relay)
	case ByteStop:
		r.StopMission()
		return true
	case ByteTest:
		if env.Alert != nil {
			env.Alert.Alert(2)
		}
		return true
	case ByteCalibrate:
		if env.Calib == nil || r.Mission.Running() {
			return false
		}
		calibrate(env)
		return true
	}
	return false
}

// calibrate steps the gray array calibration: the first byte samples black,
// the next one (once black is recorded) samples white. One beep marks each
// accepted step.
func calibrate(env Env) {
	switch env.Calib.CalibState() {
	case core.CalibBlack, core.CalibWhite:
		return
	case core.CalibWait:
		env.Calib.ConfirmWhite()
	default:
		env.Calib.StartCalibration()
	}
	if env.Alert != nil {
		env.Alert.Alert(1)
	}
}

// probe squares up and drives to the first black line
func probe(m *core.Mission) {
	m.AddTurn(0).
		AddMoveUntil(core.ModeStraight, core.UntilBlackLine).
		SetLoop(1)
}

// outAndBack crosses to the arc, follows it, turns round and comes back
func outAndBack(m *core.Mission) {
	m.AddTurn(0).
		AddMoveUntil(core.ModeStraight, core.UntilBlackLine).
		AddMoveUntil(core.ModeTrack, core.UntilWhiteLine).
		AddTurn(-180).
		AddMoveUntil(core.ModeStraight, core.UntilBlackLine).
		AddMoveUntil(core.ModeTrack, core.UntilWhiteLine).
		SetLoop(1)
}

// figureEight crosses the field diagonally between the two arcs
func figureEight(loops uint32) func(m *core.Mission) {
	return func(m *core.Mission) {
		m.AddTurn(-35).
			AddMoveUntil(core.ModeStraight, core.UntilBlackLine).
			AddMoveUntil(core.ModeTrack, core.UntilWhiteLine).
			AddTurn(-145).
			AddMoveUntil(core.ModeStraight, core.UntilBlackLine).
			AddMoveUntil(core.ModeTrack, core.UntilWhiteLine).
			SetLoop(loops)
	}
}
