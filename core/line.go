package core

// LineEvent selects the MoveUntil completion condition
type LineEvent uint8

const (
	UntilBlackLine LineEvent = iota // any sensor sees the line
	UntilWhiteLine                  // the whole array reads white
	UntilStopMark                   // a wide dark band, see stopMarks
)

func (e LineEvent) String() string {
	switch e {
	case UntilBlackLine:
		return "black"
	case UntilWhiteLine:
		return "white"
	case UntilStopMark:
		return "stop_mark"
	default:
		return "unknown"
	}
}

// LineSensorCount is the width of the grayscale array.
// Sensor 0 is the leftmost one and maps to the most significant bit.
const LineSensorCount = 8

// separatedOutput is reported on a fork while following the inner track
const separatedOutput = 3.0

// stopMarks lists the patterns of five or more adjacent dark sensors
var stopMarks = [...]uint16{
	0x1F, 0x3E, 0x7C, 0xF8, // five
	0x3F, 0x7E, 0xFC, // six
	0x7F, 0xFE, // seven
	0xFF, // eight
}

// IsStopMark reports whether the bitmask is a stop-mark pattern
func IsStopMark(bitmask uint16) bool {
	for _, m := range stopMarks {
		if m == bitmask {
			return true
		}
	}
	return false
}

const noPosition = 127

// positionTable maps every bitmask made of one to three adjacent dark
// sensors to the mean weight of those sensors. Sensor weights run from +7
// (leftmost) to -7 (rightmost) in steps of 2, so a positive position means the
// line lies left of centre.
var positionTable = buildPositionTable()

func buildPositionTable() (t [1 << LineSensorCount]int8) {
	for i := range t {
		t[i] = noPosition
	}
	for width := 1; width <= 3; width++ {
		for first := 0; first+width <= LineSensorCount; first++ {
			var mask, sum int
			for s := first; s < first+width; s++ {
				mask |= 1 << (LineSensorCount - 1 - s)
				sum += 7 - 2*s
			}
			t[mask] = int8(sum / width)
		}
	}
	return t
}

// runs counts the groups of adjacent set bits
func runs(bitmask uint16) int {
	n := 0
	prev := false
	for i := 0; i < LineSensorCount; i++ {
		on := bitmask&(1<<i) != 0
		if on && !prev {
			n++
		}
		prev = on
	}
	return n
}

// LineArray turns raw grayscale readings into a line position
type LineArray struct {
	read   func() uint16
	last   uint16
	backup float32

	// Separated enables fork handling: two separate dark groups report 0
	// when OuterTrack is set and 3.0 otherwise.
	Separated  bool
	OuterTrack bool
}

// NewLineArray wraps a raw bitmask reader
func NewLineArray(read func() uint16) *LineArray {
	return &LineArray{read: read}
}

// ReadBitmask samples the array
func (l *LineArray) ReadBitmask() uint16 {
	l.last = l.read() & (1<<LineSensorCount - 1)
	return l.last
}

// Last returns the most recent sample without reading the hardware
func (l *LineArray) Last() uint16 {
	return l.last
}

// Position samples the array and returns the line offset. Unknown patterns
// return the last valid position.
func (l *LineArray) Position() float32 {
	bits := l.ReadBitmask()
	if l.Separated && runs(bits) >= 2 {
		if l.OuterTrack {
			return 0
		}
		return separatedOutput
	}
	if p := positionTable[bits]; p != noPosition {
		l.backup = float32(p)
	}
	return l.backup
}

// lineWatch holds the consecutive-hit counters of MoveUntil
type lineWatch struct {
	white    int
	stopMark int
}

func (w *lineWatch) reset() {
	w.white = 0
	w.stopMark = 0
}
