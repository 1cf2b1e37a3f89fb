package core

import (
	"bytes"
	"testing"

	"trackcar/protocol"
)

type robotRig struct {
	robot  *Robot
	line   *mockLine
	motor  *mockMotor
	sender *mockSender
	trace  []byte
}

func newTestRobot(t *testing.T) *robotRig {
	t.Helper()
	SetMillis(0)
	rr := &robotRig{line: &mockLine{}, motor: &mockMotor{}, sender: &mockSender{}}
	robot, err := NewRobot(RobotParts{
		Config:   DefaultCarConfig(),
		PIDs:     DefaultPIDSet(),
		Hardware: Hardware{Motor: rr.motor, Encoder: &mockEncoder{}, Line: rr.line, Alert: NopAlerter{}},
		Sender:   rr.sender,
	})
	if err != nil {
		t.Fatalf("NewRobot failed: %v", err)
	}
	robot.AddRoute("abc", func(m *Mission) {
		m.AddCall(func() { rr.trace = append(rr.trace, 'A') }).
			AddCall(func() { rr.trace = append(rr.trace, 'B') }).
			SetLoop(1)
	})
	robot.AddRoute("empty", func(m *Mission) {})
	rr.robot = robot
	return rr
}

func (rr *robotRig) run(from, to uint32) {
	for now := from; now <= to; now++ {
		SetMillis(now)
		rr.robot.Poll(now)
	}
}

func command(id uint16, args ...int32) []byte {
	p := protocol.AppendVLQUint(nil, uint32(id))
	for _, a := range args {
		p = protocol.AppendVLQInt(p, a)
	}
	return p
}

func TestNewRobotRequiresParts(t *testing.T) {
	_, err := NewRobot(RobotParts{Config: DefaultCarConfig(), PIDs: DefaultPIDSet()})
	if err != ErrNoMotor {
		t.Errorf("Expected ErrNoMotor, got %v", err)
	}
	_, err = NewRobot(RobotParts{
		Config:   DefaultCarConfig(),
		PIDs:     DefaultPIDSet(),
		Hardware: Hardware{Motor: NopMotor{}, Encoder: &mockEncoder{}, Line: &mockLine{}, Alert: NopAlerter{}},
	})
	if err != ErrNoSender {
		t.Errorf("Expected ErrNoSender, got %v", err)
	}
}

func TestRobotTaskOrder(t *testing.T) {
	rr := newTestRobot(t)
	tasks := rr.robot.Tasks.Tasks()
	if len(tasks) != 3 || tasks[0].ID != TaskMotion || tasks[1].ID != TaskMission {
		t.Fatalf("Expected motion before mission, got %+v", tasks)
	}
	if tasks[1].Enabled {
		t.Error("Mission task should idle until a route starts")
	}
}

func TestRobotStartRouteRemote(t *testing.T) {
	rr := newTestRobot(t)

	if err := rr.robot.HandlePacket(command(protocol.CmdStart, 0)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !rr.robot.Active() || !rr.robot.Tasks.Enabled(TaskMission) {
		t.Fatal("Expected the mission running")
	}

	rr.run(1, 100)
	if string(rr.trace) != "AB" {
		t.Errorf("Expected AB, got %s", rr.trace)
	}
	if rr.robot.Active() || rr.robot.Mission.Running() {
		t.Error("Expected the mission finished")
	}
	if rr.robot.Tasks.Enabled(TaskMission) {
		t.Error("Expected the mission task to idle again")
	}
	if rr.robot.Tasks.Tasks()[0].Runs != 5 {
		t.Errorf("Expected motion to keep running, %d runs", rr.robot.Tasks.Tasks()[0].Runs)
	}
}

func TestRobotSelectAndStop(t *testing.T) {
	rr := newTestRobot(t)

	if err := rr.robot.HandlePacket(command(protocol.CmdSelect, 5)); err != ErrUnknownRoute {
		t.Errorf("Expected ErrUnknownRoute, got %v", err)
	}
	if err := rr.robot.HandlePacket(command(protocol.CmdSelect, 1)); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if rr.robot.Selected() != 1 {
		t.Errorf("Expected route 1 selected, got %d", rr.robot.Selected())
	}
	if err := rr.robot.StartSelected(); err != ErrEmptyRoute {
		t.Errorf("Expected ErrEmptyRoute, got %v", err)
	}

	rr.robot.Select(0)
	rr.robot.StartSelected()
	rr.run(1, 20)
	if err := rr.robot.HandlePacket(command(protocol.CmdStop)); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if rr.robot.Mission.Running() || rr.robot.Tasks.Enabled(TaskMission) {
		t.Error("Expected the mission stopped")
	}
	if string(rr.trace) != "A" {
		t.Errorf("Expected only A before stop, got %s", rr.trace)
	}
}

func TestRobotRestartRebuildsMission(t *testing.T) {
	rr := newTestRobot(t)
	rr.robot.StartRoute(0)
	rr.robot.StartRoute(0)
	if rr.robot.Mission.Len() != 2 {
		t.Errorf("Expected the mission rebuilt with 2 actions, got %d", rr.robot.Mission.Len())
	}
}

func TestRobotRouteTrackSpeedIsScoped(t *testing.T) {
	rr := newTestRobot(t)
	slow := rr.robot.AddRoute("slow", func(m *Mission) {
		m.AddCall(func() { rr.robot.Car.SetTrackSpeed(20) }).AddDelay(1000)
	})

	if err := rr.robot.StartRoute(slow); err != nil {
		t.Fatalf("StartRoute failed: %v", err)
	}
	rr.robot.Mission.Tick()
	if rr.robot.Car.TrackSpeed() != 20 {
		t.Errorf("Expected track speed 20 inside the route, got %f", rr.robot.Car.TrackSpeed())
	}
	if rr.robot.Car.Config().TrackSpeed != 35 {
		t.Errorf("Expected the configured speed to stay 35, got %f", rr.robot.Car.Config().TrackSpeed)
	}

	rr.robot.StartRoute(0)
	if rr.robot.Car.TrackSpeed() != 35 {
		t.Errorf("Expected the next route to start at 35, got %f", rr.robot.Car.TrackSpeed())
	}
}

func TestRobotSettings(t *testing.T) {
	rr := newTestRobot(t)

	rr.robot.HandlePacket(command(protocol.CmdTrackSpeed, 425))
	if rr.robot.Car.TrackSpeed() != 42.5 {
		t.Errorf("Expected track speed 42.5, got %f", rr.robot.Car.TrackSpeed())
	}
	rr.robot.StartRoute(0)
	if rr.robot.Car.TrackSpeed() != 42.5 {
		t.Errorf("Expected the remote speed to survive a route start, got %f", rr.robot.Car.TrackSpeed())
	}
	rr.robot.StopMission()
	rr.robot.HandlePacket(command(protocol.CmdStopMarks, 3))
	if rr.robot.Car.Config().StopMarks != 3 {
		t.Errorf("Expected 3 stop marks, got %d", rr.robot.Car.Config().StopMarks)
	}

	follow := append(command(protocol.CmdFollow), 1)
	if err := rr.robot.HandlePacket(follow); err != nil {
		t.Errorf("follow failed: %v", err)
	}
	if err := rr.robot.HandlePacket(command(protocol.CmdFollow)); err != protocol.ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for a missing argument, got %v", err)
	}
}

func TestRobotBytes(t *testing.T) {
	rr := newTestRobot(t)
	wait := rr.robot.ByteIs('Z')

	if wait() {
		t.Fatal("Predicate should wait for a byte")
	}
	rr.robot.HandlePacket(append(command(protocol.CmdByte), 'Y'))
	if wait() {
		t.Error("Predicate should ignore other bytes")
	}
	rr.robot.HandlePacket(append(command(protocol.CmdByte), 'Z'))
	if !wait() {
		t.Error("Expected predicate to see Z")
	}
	if _, ok := rr.robot.TakeByte(); ok {
		t.Error("A matched byte should be consumed")
	}

	rr.robot.PutByte('Q')
	if b, ok := rr.robot.TakeByte(); !ok || b != 'Q' {
		t.Errorf("Expected Q, got %q (%v)", b, ok)
	}
}

func TestRobotPing(t *testing.T) {
	rr := newTestRobot(t)
	var reply []byte
	rr.robot.SetReplier(func(p []byte) error {
		reply = append([]byte(nil), p...)
		return nil
	})

	if err := rr.robot.HandlePacket(command(protocol.CmdPing)); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if !bytes.Equal(reply, []byte{protocol.RespPong}) {
		t.Errorf("Expected pong, got %v", reply)
	}
	if err := rr.robot.HandlePacket(command(protocol.RespTelemetry)); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand for an outgoing id, got %v", err)
	}
}

func TestRobotTelemetry(t *testing.T) {
	rr := newTestRobot(t)
	rr.line.bits = 0x18
	rr.robot.StartRoute(0)
	rr.run(1, 20)

	tel := rr.robot.Telemetry()
	if !tel.Running || tel.Cursor != 1 {
		t.Errorf("Expected running at cursor 1, got %+v", tel)
	}
	if tel.Bitmask != 0x18 || tel.Wheels != 4 {
		t.Errorf("Unexpected bitmask or wheels %+v", tel)
	}
	if tel.Mode != uint8(ModeStop) {
		t.Errorf("Expected ModeStop, got %d", tel.Mode)
	}
}

func TestRobotTimersTask(t *testing.T) {
	rr := newTestRobot(t)
	var edges []bool
	b := NewBeeper(func(on bool) { edges = append(edges, on) }, rr.robot.Timers)

	b.Alert(1)
	rr.run(1, 300)
	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Errorf("Expected one beep through the timers task, got %v", edges)
	}
}
