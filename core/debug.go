package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// LogLevel filters debug output
type LogLevel uint8

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelTags = [...]string{"[E] ", "[W] ", "[I] ", "[D] "}

// Event captures a mission or motion transition for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Arg    uint8  // Action kind or mode
	Clock  uint32 // Millis at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtModeEnter     = 1 // Arg=new mode, V1=previous mode
	EvtMissionStart  = 2 // V1=action count, V2=loop target
	EvtMissionStop   = 3 // V1=cursor, V2=loops done
	EvtMissionLoop   = 4 // V1=loops done
	EvtActionStart   = 5 // Arg=kind, V1=cursor
	EvtActionDone    = 6 // Arg=kind, V1=cursor
	EvtQueueFull     = 7 // Arg=kind, V1=dropped so far
	EvtRemoteCommand = 8 // Arg=command id
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the platform output (UART, USB); no-op by default
	debugPrintln DebugWriter = func(s string) {}

	logLevel = LevelWarn

	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventsEnabled = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetLogLevel sets the most verbose level that is written
func SetLogLevel(level LogLevel) {
	logLevel = level
}

// GetLogLevel returns the current level
func GetLogLevel() LogLevel {
	return logLevel
}

func logAt(level LogLevel, msg string) {
	if level <= logLevel {
		debugPrintln(levelTags[level] + msg)
	}
}

func Errorln(msg string) { logAt(LevelError, msg) }
func Warnln(msg string)  { logAt(LevelWarn, msg) }
func Infoln(msg string)  { logAt(LevelInfo, msg) }
func Debugln(msg string) { logAt(LevelDebug, msg) }

// SetEventsEnabled turns event capture on or off
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// RecordEvent stores an event in the ring. It never blocks.
func RecordEvent(eventType, arg uint8, clock, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:   eventType,
		Arg:    arg,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the captured events from oldest to newest
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.Type != 0 {
			out = append(out, evt)
		}
	}
	return out
}

// EventName returns a printable name for an event
func EventName(evt Event) string {
	switch evt.Type {
	case EvtModeEnter:
		return "MODE " + Mode(evt.Arg).String()
	case EvtMissionStart:
		return "MISSION_START"
	case EvtMissionStop:
		return "MISSION_STOP"
	case EvtMissionLoop:
		return "MISSION_LOOP"
	case EvtActionStart:
		return "ACTION " + ActionKind(evt.Arg).String()
	case EvtActionDone:
		return "DONE " + ActionKind(evt.Arg).String()
	case EvtQueueFull:
		return "QUEUE_FULL!"
	case EvtRemoteCommand:
		return "REMOTE"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing writes the ring through the debug writer regardless of level
func DumpEventRing() {
	debugPrintln("[EVT] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVT] " + EventName(evt) +
			" arg=" + itoa(int(evt.Arg)) +
			" t=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVT] === End Dump ===")
}

// ClearEvents empties the ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
