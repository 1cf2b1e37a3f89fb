package core

import "errors"

// MissionCapacity is the number of action slots in a mission
const MissionCapacity = 50

var ErrNoSender = errors.New("byte sender required (use NopSender)")

// ActionKind tags a queued action
type ActionKind uint8

const (
	ActStraight  ActionKind = iota // drive Value cm on the mileage loop
	ActTurn                        // spin Value degrees
	ActTrack                       // follow the line for Value cm
	ActMoveUntil                   // drive Mode until Event
	ActDelay                       // wait Duration ms
	ActCall                        // call Call once
	ActSetBool                     // *BoolRef = Bool
	ActSetFloat                    // *FloatRef = Value
	ActSendByte                    // send Byte once
	ActWaitUntil                   // poll Until every tick
)

func (k ActionKind) String() string {
	switch k {
	case ActStraight:
		return "straight"
	case ActTurn:
		return "turn"
	case ActTrack:
		return "track"
	case ActMoveUntil:
		return "move_until"
	case ActDelay:
		return "delay"
	case ActCall:
		return "call"
	case ActSetBool:
		return "set_bool"
	case ActSetFloat:
		return "set_float"
	case ActSendByte:
		return "send_byte"
	case ActWaitUntil:
		return "wait_until"
	default:
		return "unknown"
	}
}

// Action is one mission step. Only the fields of its Kind are used.
type Action struct {
	Kind     ActionKind
	Value    float32
	Mode     Mode
	Event    LineEvent
	Duration uint32
	Byte     byte
	Bool     bool
	BoolRef  *bool
	FloatRef *float32
	Call     func()
	Until    func() bool
}

// Mission is the action queue. Actions run one at a time, each ticked until
// it reports completion.
type Mission struct {
	car    *Car
	sender ByteSender
	now    func() uint32

	actions [MissionCapacity]Action
	count   int
	dropped int

	cursor    int
	loops     uint32 // 0 runs forever
	loop      uint32
	running   bool
	firstTick bool
	started   uint32

	active   *bool
	observer func(index int, a *Action)
}

// NewMission creates an empty mission driving car
func NewMission(car *Car, sender ByteSender) (*Mission, error) {
	if car == nil {
		return nil, errors.New("mission needs a car")
	}
	if sender == nil {
		return nil, ErrNoSender
	}
	return &Mission{car: car, sender: sender, now: Millis}, nil
}

// SetClock replaces the millisecond source used by Delay actions
func (m *Mission) SetClock(now func() uint32) {
	m.now = now
}

// SetActiveFlag registers a flag mirrored to the running state
func (m *Mission) SetActiveFlag(flag *bool) {
	m.active = flag
}

// OnAction registers fn to be called on the first tick of every action
func (m *Mission) OnAction(fn func(index int, a *Action)) {
	m.observer = fn
}

// Add appends an action. A full mission ignores it.
func (m *Mission) Add(a Action) *Mission {
	if m.count >= MissionCapacity {
		m.dropped++
		RecordEvent(EvtQueueFull, uint8(a.Kind), Millis(), uint32(m.dropped), 0)
		Debugln("mission full, dropped " + a.Kind.String())
		return m
	}
	m.actions[m.count] = a
	m.count++
	return m
}

func (m *Mission) AddStraight(cm float32) *Mission {
	return m.Add(Action{Kind: ActStraight, Value: cm})
}

func (m *Mission) AddTurn(deg float32) *Mission {
	return m.Add(Action{Kind: ActTurn, Value: deg})
}

func (m *Mission) AddTrack(cm float32) *Mission {
	return m.Add(Action{Kind: ActTrack, Value: cm})
}

// AddMoveUntil drives mode (ModeStraight or ModeTrack) until event
func (m *Mission) AddMoveUntil(mode Mode, event LineEvent) *Mission {
	return m.Add(Action{Kind: ActMoveUntil, Mode: mode, Event: event})
}

func (m *Mission) AddDelay(ms uint32) *Mission {
	return m.Add(Action{Kind: ActDelay, Duration: ms})
}

func (m *Mission) AddCall(fn func()) *Mission {
	return m.Add(Action{Kind: ActCall, Call: fn})
}

func (m *Mission) AddSetBool(ref *bool, v bool) *Mission {
	return m.Add(Action{Kind: ActSetBool, BoolRef: ref, Bool: v})
}

func (m *Mission) AddSetFloat(ref *float32, v float32) *Mission {
	return m.Add(Action{Kind: ActSetFloat, FloatRef: ref, Value: v})
}

func (m *Mission) AddSendByte(b byte) *Mission {
	return m.Add(Action{Kind: ActSendByte, Byte: b})
}

// AddWaitUntil blocks the mission until pred returns true. A nil pred
// completes at once.
func (m *Mission) AddWaitUntil(pred func() bool) *Mission {
	return m.Add(Action{Kind: ActWaitUntil, Until: pred})
}

// SetLoop sets how many passes Start runs. The default 0 loops until Stop.
func (m *Mission) SetLoop(n uint32) *Mission {
	m.loops = n
	return m
}

// Clear empties the mission. A running mission is stopped first.
func (m *Mission) Clear() {
	if m.running {
		m.Stop()
	}
	m.count = 0
	m.cursor = 0
	m.dropped = 0
}

// Len returns the number of queued actions
func (m *Mission) Len() int { return m.count }

// Dropped returns how many appends were ignored because the mission was full
func (m *Mission) Dropped() int { return m.dropped }

// Cursor returns the index of the active action
func (m *Mission) Cursor() int { return m.cursor }

// LoopCount returns the number of completed passes
func (m *Mission) LoopCount() uint32 { return m.loop }

// Running reports whether the mission is executing
func (m *Mission) Running() bool { return m.running }

// Actions returns the queued actions
func (m *Mission) Actions() []Action { return m.actions[:m.count] }

// Start arms the mission from its first action
func (m *Mission) Start() bool {
	if m.count == 0 {
		return false
	}
	m.cursor = 0
	m.loop = 0
	m.running = true
	m.firstTick = true
	m.setActive(true)
	RecordEvent(EvtMissionStart, 0, m.now(), uint32(m.count), m.loops)
	return true
}

// Stop aborts the mission and brings the car to rest
func (m *Mission) Stop() {
	wasRunning := m.running
	m.running = false
	m.car.Halt()
	m.setActive(false)
	if wasRunning {
		RecordEvent(EvtMissionStop, 0, m.now(), uint32(m.cursor), m.loop)
	}
}

// Tick advances the mission by one control period
func (m *Mission) Tick() {
	if !m.running {
		return
	}
	if m.cursor >= m.count {
		m.loop++
		if m.loops != 0 && m.loop >= m.loops {
			m.Stop()
			return
		}
		m.cursor = 0
		m.firstTick = true
		RecordEvent(EvtMissionLoop, 0, m.now(), m.loop, 0)
	}

	a := &m.actions[m.cursor]
	first := m.firstTick
	if first {
		m.started = m.now()
		RecordEvent(EvtActionStart, uint8(a.Kind), m.started, uint32(m.cursor), 0)
		if m.observer != nil {
			m.observer(m.cursor, a)
		}
	}

	if m.step(a, first) {
		RecordEvent(EvtActionDone, uint8(a.Kind), m.now(), uint32(m.cursor), 0)
		m.cursor++
		m.firstTick = true
	} else {
		m.firstTick = false
	}
}

func (m *Mission) step(a *Action, first bool) bool {
	switch a.Kind {
	case ActStraight:
		return m.car.MoveCM(a.Value, ModeStraight)
	case ActTrack:
		return m.car.MoveCM(a.Value, ModeTrack)
	case ActTurn:
		return m.car.SpinTurn(a.Value)
	case ActMoveUntil:
		return m.car.MoveUntil(a.Mode, a.Event)
	case ActDelay:
		return m.now()-m.started >= a.Duration
	case ActCall:
		if first && a.Call != nil {
			a.Call()
		}
	case ActSetBool:
		if first && a.BoolRef != nil {
			*a.BoolRef = a.Bool
		}
	case ActSetFloat:
		if first && a.FloatRef != nil {
			*a.FloatRef = a.Value
		}
	case ActSendByte:
		if first {
			if err := m.sender.SendByte(a.Byte); err != nil {
				Warnln("send byte: " + err.Error())
			}
		}
	case ActWaitUntil:
		if a.Until == nil {
			Debugln("wait_until without predicate at " + itoa(m.cursor))
			return true
		}
		return a.Until()
	}
	return true
}

func (m *Mission) setActive(v bool) {
	if m.active != nil {
		*m.active = v
	}
}
