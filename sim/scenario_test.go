package sim

import (
	"math"
	"testing"

	"trackcar/core"
)

// runCourse drives straight(100), turn(90) and follows the line to its stop
// mark. Without an IMU the odometry turn spins clockwise, so the line is
// laid towards -y.
func runCourse(t *testing.T, heading bool) *Sim {
	t.Helper()
	course := 90.0
	if !heading {
		course = -90
	}
	s, err := New(Options{
		Heading:  heading,
		Segments: []Segment{{X: 100, Y: 0, Heading: course, Length: 80, Marks: []float64{30}}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	idx := s.Robot.AddRoute("course", func(m *core.Mission) {
		m.AddStraight(100).
			AddTurn(90).
			AddMoveUntil(core.ModeTrack, core.UntilStopMark).
			SetLoop(1)
	})
	if s.Robot.Mission.Running() {
		t.Fatal("Expected the mission idle before start")
	}
	if err := s.Robot.StartRoute(idx); err != nil {
		t.Fatalf("StartRoute failed: %v", err)
	}

	steps := 0
	done := s.RunUntil(func() bool {
		steps++
		return !s.Robot.Mission.Running()
	}, 30000)
	if !done {
		t.Fatalf("Expected the mission to finish, modes so far %v", s.Modes())
	}
	if steps < 100 {
		t.Errorf("Expected the mission to run for a while, ended after %d steps", steps)
	}
	if s.Robot.Active() {
		t.Error("Expected the active flag cleared at the end")
	}

	want := []core.Mode{core.ModeStraight, core.ModeStop, core.ModeTurn, core.ModeStop, core.ModeTrack, core.ModeStop}
	got := s.Modes()
	if len(got) != len(want) {
		t.Fatalf("Expected modes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Mode %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// The bar sees the mark 6 cm before the axle reaches it
	x, y, h := s.Plant.Pose()
	along := y
	if !heading {
		along = -y
	}
	if math.Abs(x-100) > 3 {
		t.Errorf("Expected to stay on the line at x=100, got x=%f", x)
	}
	if along < 20 || along > 30 {
		t.Errorf("Expected to stop near the mark, got %f cm along the line", along)
	}
	if math.Abs(h-course) > 10 {
		t.Errorf("Expected heading near %f, got %f", course, h)
	}
	if len(s.Alerts) != 1 || s.Alerts[0] != 1 {
		t.Errorf("Expected one beep for the stop mark, got %v", s.Alerts)
	}
	return s
}

func TestScenarioWithHeading(t *testing.T) {
	runCourse(t, true)
}

func TestScenarioOdometryTurn(t *testing.T) {
	runCourse(t, false)
}

func TestScenarioTelemetry(t *testing.T) {
	s := runCourse(t, true)
	tel := s.Robot.Telemetry()
	if tel.Running {
		t.Error("Expected telemetry to report an idle mission")
	}
	if tel.Mode != uint8(core.ModeStop) {
		t.Errorf("Expected ModeStop, got %d", tel.Mode)
	}
	if tel.Wheels != 4 {
		t.Errorf("Expected 4 wheels, got %d", tel.Wheels)
	}
	if tel.Yaw10 < 800 || tel.Yaw10 > 1000 {
		t.Errorf("Expected yaw near 90 degrees, got %d", tel.Yaw10)
	}
}

func TestRunMissionProbe(t *testing.T) {
	s, err := New(Options{
		Heading:  true,
		Segments: []Segment{{X: 60, Y: -20, Heading: 90, Length: 40}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.RunMission("probe", 20000); err != nil {
		t.Fatalf("RunMission failed: %v", err)
	}
	x, _, _ := s.Plant.Pose()
	// The bar reaches the line 6 cm before the axle
	if x < 50 || x > 58 {
		t.Errorf("Expected to stop just before x=60, got %f", x)
	}
	if err := s.RunMission("nope", 100); err == nil {
		t.Error("Expected an error for an unknown route")
	}
}

func TestRunMissionLapSendsBytes(t *testing.T) {
	s, err := New(Options{
		Heading:  true,
		Segments: []Segment{{X: -10, Y: 0, Heading: 0, Length: 200, Marks: []float64{60}}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.RunMission("lap", 20000); err != nil {
		t.Fatalf("RunMission failed: %v", err)
	}
	if len(s.Sent) != 2 || s.Sent[0] != '1' || s.Sent[1] != 'S' {
		t.Errorf("Expected start and stop bytes, got %q", s.Sent)
	}
	if !s.Line.OuterTrack {
		t.Error("Expected the lap to select the outer track")
	}
}
