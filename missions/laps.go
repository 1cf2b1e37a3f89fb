package missions

import "trackcar/core"

// laps are the two-car track routes. The leader announces each route with a
// bluetooth byte and ends it with ByteStop.
type laps struct {
	car  *core.Car
	line *core.LineArray
}

func (l *laps) speed(m *core.Mission, cmps float32) {
	m.AddCall(func() { l.car.SetTrackSpeed(cmps) })
}

func (l *laps) lap(m *core.Mission) {
	l.speed(m, BaseSpeed-5)
	m.AddSetBool(&l.line.OuterTrack, true).
		AddSendByte(ByteLap).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddSendByte(ByteStop).
		SetLoop(1)
}

func (l *laps) twoLaps(m *core.Mission) {
	l.speed(m, BaseSpeed)
	m.AddSetBool(&l.line.OuterTrack, true).
		AddSendByte(ByteTwoLaps).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddTrack(StopMarkClearance).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddSendByte(ByteStop).
		SetLoop(1)
}

// overtake runs two outer laps, then cuts inside faster for the third
func (l *laps) overtake(m *core.Mission) {
	m.AddSetBool(&l.line.OuterTrack, true)
	l.speed(m, BaseSpeed)
	m.AddSendByte(ByteOvertake).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddTrack(StopMarkClearance).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark)
	l.speed(m, BaseSpeed+14)
	m.AddSetBool(&l.line.OuterTrack, false).
		AddTrack(150)
	l.speed(m, BaseSpeed)
	m.AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		AddSendByte(ByteStop).
		SetLoop(1)
}

// relay drives one lap, pauses and waits for the reconnect byte before the
// last lap
func (l *laps) relay(r *core.Robot) func(m *core.Mission) {
	return func(m *core.Mission) {
		m.AddSetBool(&l.line.OuterTrack, true)
		l.speed(m, BaseSpeed+15)
		m.AddSendByte(ByteRelay).
			AddMoveUntil(core.ModeTrack, core.UntilStopMark).
			AddSendByte(ByteStop).
			AddDelay(5000).
			AddWaitUntil(r.ByteIs(ByteReconnect)).
			AddSendByte(ByteReconnect).
			AddTrack(40).
			AddMoveUntil(core.ModeTrack, core.UntilStopMark).
			AddSendByte(ByteStop).
			SetLoop(1)
	}
}

// relayResume restarts the last lap after a reset
func (l *laps) relayResume(m *core.Mission) {
	l.speed(m, 60)
	m.AddTrack(100).
		AddMoveUntil(core.ModeTrack, core.UntilStopMark).
		SetLoop(1)
}
