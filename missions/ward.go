package missions

import (
	"trackcar/core"
	"trackcar/protocol"
)

// Camera requests
const (
	CamStart  = "START"
	CamNumber = "NUMBER"
	CamTrack  = "TRACK"
)

// Camera command codes
const (
	CamGoLeft  uint8 = 0x01
	CamGoRight uint8 = 0x02
	CamNone    uint8 = 0x03
)

// Ward path geometry in cm
const (
	wardApproach = 46
	wardBack     = -10
	wardSettleMS = 1500
)

// ward is the delivery route: the camera reads a room number at the start
// and later points left or right at each junction. The route extends itself
// at run time as the camera answers.
type ward struct {
	cam *protocol.CameraState
	tx  func(cmd string) error
	m   *core.Mission
}

func (w *ward) build(m *core.Mission) {
	w.m = m
	w.sendAndWait(CamStart, w.numberSeen)
	m.AddCall(w.near).SetLoop(1)
}

func (w *ward) send(cmd string) func() {
	return func() {
		if err := w.tx(cmd); err != nil {
			core.Warnln("camera: " + err.Error())
		}
	}
}

func (w *ward) reset() {
	w.cam.Number = 0
	w.cam.Command = 0
	w.cam.NumberFresh = false
	w.cam.CommandFresh = false
}

func (w *ward) numberSeen() bool  { return w.cam.Number != 0 }
func (w *ward) commandSeen() bool { return w.cam.Command != 0 }

func (w *ward) sendAndWait(cmd string, pred func() bool) {
	w.m.AddCall(w.send(cmd)).AddWaitUntil(pred)
}

// side turns off the corridor into a room and back out facing home
func (w *ward) side(track float32, left bool) {
	in, out := float32(90), float32(-90)
	if !left {
		in, out = out, in
	}
	w.m.AddTrack(track).
		AddTurn(in).
		AddStraight(wardApproach).
		AddTurn(out).
		AddStraight(wardApproach).
		AddTurn(180)
}

func (w *ward) stopAndBack(angle float32) {
	w.m.AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddStraight(wardBack).
		AddTurn(angle)
}

// near handles the two rooms next to the start, decided by the number
func (w *ward) near() {
	m := w.m
	m.AddCall(w.send(CamTrack)).AddCall(w.reset)
	switch w.cam.Number {
	case 1:
		m.AddMoveUntil(core.ModeTrack, core.UntilStopMark)
		w.side(30, true)
		m.AddTrack(60).AddTurn(0)
	case 2:
		m.AddMoveUntil(core.ModeTrack, core.UntilStopMark)
		w.side(30, false)
		m.AddTrack(60).AddTurn(0)
	default:
		m.AddMoveUntil(core.ModeTrack, core.UntilStopMark).AddTrack(30)
		w.stopAndBack(0)
		m.AddDelay(wardSettleMS)
		w.sendAndWait(CamNumber, w.commandSeen)
		m.AddCall(w.middle)
	}
}

// middle handles the middle junction, or heads for the far rooms
func (w *ward) middle() {
	m := w.m
	cmd := w.cam.Command
	m.AddCall(w.send(CamTrack)).AddCall(w.reset)
	switch cmd {
	case CamGoLeft, CamGoRight:
		w.side(35, cmd == CamGoLeft)
		m.AddMoveUntil(core.ModeTrack, core.UntilStopMark).
			AddTrack(100).
			AddTurn(0)
	default:
		m.AddTrack(40)
		w.stopAndBack(0)
		m.AddDelay(wardSettleMS)
		w.sendAndWait(CamNumber, w.commandSeen)
		m.AddCall(w.far)
	}
}

// far turns towards the side the camera picked at the far junction
func (w *ward) far() {
	m := w.m
	cmd := w.cam.Command
	m.AddCall(w.send(CamTrack))
	if cmd != CamGoLeft && cmd != CamGoRight {
		return
	}
	angle := float32(90)
	if cmd == CamGoRight {
		angle = -90
	}
	m.AddCall(w.reset).
		AddTrack(35).
		AddTurn(angle)
	w.stopAndBack(angle)
	m.AddDelay(wardSettleMS)
}
