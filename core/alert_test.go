package core

import "testing"

func TestBeeperPattern(t *testing.T) {
	var q TimerQueue
	var states []bool
	b := NewBeeper(func(on bool) { states = append(states, on) }, &q)

	SetMillis(1000)
	b.Alert(2)
	if !b.Busy() {
		t.Fatal("Expected beeper busy")
	}
	for now := uint32(1000); now <= 1500; now += 10 {
		q.Dispatch(now)
	}

	want := []bool{true, false, true, false}
	if len(states) != len(want) {
		t.Fatalf("Expected %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, states)
			break
		}
	}
	if b.Busy() || q.Pending() != 0 {
		t.Error("Expected beeper idle")
	}
}

func TestBeeperQueuesWhileBusy(t *testing.T) {
	var q TimerQueue
	edges := 0
	b := NewBeeper(func(bool) { edges++ }, &q)

	SetMillis(0)
	b.Alert(1)
	b.Alert(1)
	b.Alert(0)
	if q.Pending() != 1 {
		t.Errorf("Expected a single timer, got %d", q.Pending())
	}
	for now := uint32(0); now <= 1000; now += 10 {
		q.Dispatch(now)
	}
	if edges != 4 {
		t.Errorf("Expected 4 edges for 2 beeps, got %d", edges)
	}
}
