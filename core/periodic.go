package core

import "errors"

// TaskID identifies a periodic task
type TaskID uint8

// MaxPeriodicTasks bounds the task table
const MaxPeriodicTasks = 16

var (
	ErrTaskExists    = errors.New("periodic task already registered")
	ErrTaskTableFull = errors.New("periodic task table full")
	ErrUnknownTask   = errors.New("unknown periodic task")
)

// PeriodicTask is one entry of the round-robin table
type PeriodicTask struct {
	ID       TaskID
	Name     string
	Handler  func()
	PeriodMS uint32
	Enabled  bool
	LastRun  uint32
	Runs     uint32
}

// PeriodicScheduler runs fixed-interval tasks from the main loop.
// Tasks run in registration order and never preempt each other.
type PeriodicScheduler struct {
	tasks [MaxPeriodicTasks]PeriodicTask
	count int
}

// Register adds a task. Disabled tasks stay idle until Enable.
func (s *PeriodicScheduler) Register(id TaskID, name string, handler func(), periodMS uint32, enabled bool) error {
	if s.find(id) != nil {
		return ErrTaskExists
	}
	if s.count >= MaxPeriodicTasks {
		return ErrTaskTableFull
	}
	s.tasks[s.count] = PeriodicTask{
		ID:       id,
		Name:     name,
		Handler:  handler,
		PeriodMS: periodMS,
		Enabled:  enabled,
		LastRun:  Millis(),
	}
	s.count++
	return nil
}

// Init restarts every period from now
func (s *PeriodicScheduler) Init(now uint32) {
	for i := 0; i < s.count; i++ {
		s.tasks[i].LastRun = now
	}
}

// Enable starts a task; its first run is one period after now
func (s *PeriodicScheduler) Enable(id TaskID, now uint32) error {
	t := s.find(id)
	if t == nil {
		return ErrUnknownTask
	}
	t.Enabled = true
	t.LastRun = now
	return nil
}

// Disable idles a task
func (s *PeriodicScheduler) Disable(id TaskID) error {
	t := s.find(id)
	if t == nil {
		return ErrUnknownTask
	}
	t.Enabled = false
	return nil
}

// Enabled reports whether a task is running
func (s *PeriodicScheduler) Enabled(id TaskID) bool {
	t := s.find(id)
	return t != nil && t.Enabled
}

// Process runs every enabled task whose period has elapsed
func (s *PeriodicScheduler) Process(now uint32) {
	for i := 0; i < s.count; i++ {
		t := &s.tasks[i]
		if !t.Enabled || t.Handler == nil {
			continue
		}
		if Elapsed(now, t.LastRun, t.PeriodMS) {
			t.Handler()
			t.LastRun = now
			t.Runs++
		}
	}
}

// Tasks returns the registered tasks
func (s *PeriodicScheduler) Tasks() []PeriodicTask {
	return s.tasks[:s.count]
}

func (s *PeriodicScheduler) find(id TaskID) *PeriodicTask {
	for i := 0; i < s.count; i++ {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}
