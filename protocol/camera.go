package protocol

import "errors"

// Camera co-processor messages are short ASCII lines:
//
//	T:0x33   track bitmask
//	N:123    recognised number
//	C:0x01   command code
var (
	ErrInvalidFormat = errors.New("camera: invalid format")
	ErrInvalidLength = errors.New("camera: invalid length")
)

// CameraKind is the first character of a camera message
type CameraKind byte

const (
	CameraTrack   CameraKind = 'T'
	CameraNumber  CameraKind = 'N'
	CameraCommand CameraKind = 'C'
)

// cameraNumberMax is the longest digit string accepted after "N:"
const cameraNumberMax = 15

// CameraMessage is one parsed line
type CameraMessage struct {
	Kind    CameraKind
	Track   uint8
	Number  int32
	Command uint8
}

// ParseCamera parses a single message without its line terminator
func ParseCamera(line []byte) (CameraMessage, error) {
	var msg CameraMessage
	if len(line) < 3 {
		return msg, ErrInvalidLength
	}
	if line[1] != ':' {
		return msg, ErrInvalidFormat
	}
	msg.Kind = CameraKind(line[0])
	switch msg.Kind {
	case CameraTrack, CameraCommand:
		if len(line) < 6 || line[2] != '0' || line[3] != 'x' {
			return msg, ErrInvalidFormat
		}
		v := hexNibble(line[4])<<4 | hexNibble(line[5])
		if msg.Kind == CameraTrack {
			msg.Track = v
		} else {
			msg.Command = v
		}
	case CameraNumber:
		if len(line)-2 > cameraNumberMax {
			return msg, ErrInvalidLength
		}
		msg.Number = atoi(line[2:])
	default:
		return msg, ErrInvalidFormat
	}
	return msg, nil
}

// Invalid digits read as zero
func hexNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

// atoi skips leading blanks, takes an optional sign and stops at the first
// non-digit
func atoi(s []byte) int32 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v int32
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + int32(s[i]-'0')
	}
	if neg {
		return -v
	}
	return v
}

// CameraHandler receives parsed camera messages
type CameraHandler interface {
	OnTrack(mask uint8)
	OnNumber(n int32)
	OnCommand(code uint8)
}

// NopCameraHandler ignores everything
type NopCameraHandler struct{}

func (NopCameraHandler) OnTrack(uint8)   {}
func (NopCameraHandler) OnNumber(int32)  {}
func (NopCameraHandler) OnCommand(uint8) {}

// CameraState keeps the most recent value of each message kind. The Fresh
// flags are set on arrival and cleared by the Take methods.
type CameraState struct {
	Track   uint8
	Number  int32
	Command uint8

	TrackFresh   bool
	NumberFresh  bool
	CommandFresh bool
}

func (s *CameraState) OnTrack(mask uint8) {
	s.Track = mask
	s.TrackFresh = true
}

func (s *CameraState) OnNumber(n int32) {
	s.Number = n
	s.NumberFresh = true
}

func (s *CameraState) OnCommand(code uint8) {
	s.Command = code
	s.CommandFresh = true
}

// TakeNumber returns the latest number once
func (s *CameraState) TakeNumber() (int32, bool) {
	if !s.NumberFresh {
		return 0, false
	}
	s.NumberFresh = false
	return s.Number, true
}

// TakeCommand returns the latest command once
func (s *CameraState) TakeCommand() (uint8, bool) {
	if !s.CommandFresh {
		return 0, false
	}
	s.CommandFresh = false
	return s.Command, true
}

// CameraStats counts parse results
type CameraStats struct {
	OK            uint32
	InvalidFormat uint32
	InvalidLength uint32
	Overflow      uint32
}

// cameraLineMax bounds a buffered line; longer input is discarded up to the
// next terminator
const cameraLineMax = 32

// CameraReader assembles newline-terminated lines from a byte stream and
// forwards parsed messages to a handler
type CameraReader struct {
	handler  CameraHandler
	line     [cameraLineMax]byte
	n        int
	overflow bool
	stats    CameraStats
}

// NewCameraReader creates a reader. A nil handler discards messages.
func NewCameraReader(handler CameraHandler) *CameraReader {
	if handler == nil {
		handler = NopCameraHandler{}
	}
	return &CameraReader{handler: handler}
}

// Feed processes bytes and returns the number of complete lines seen
func (r *CameraReader) Feed(data []byte) int {
	lines := 0
	for _, b := range data {
		if b == '\n' || b == '\r' {
			if r.n > 0 || r.overflow {
				r.finish()
				lines++
			}
			continue
		}
		if r.n >= len(r.line) {
			r.overflow = true
			continue
		}
		r.line[r.n] = b
		r.n++
	}
	return lines
}

// Receive drains an input buffer
func (r *CameraReader) Receive(input InputBuffer) int {
	data := input.Data()
	lines := r.Feed(data)
	input.Pop(len(data))
	return lines
}

func (r *CameraReader) finish() {
	defer func() {
		r.n = 0
		r.overflow = false
	}()
	if r.overflow {
		r.stats.Overflow++
		return
	}
	msg, err := ParseCamera(r.line[:r.n])
	switch err {
	case nil:
	case ErrInvalidLength:
		r.stats.InvalidLength++
		return
	default:
		r.stats.InvalidFormat++
		return
	}
	r.stats.OK++
	switch msg.Kind {
	case CameraTrack:
		r.handler.OnTrack(msg.Track)
	case CameraNumber:
		r.handler.OnNumber(msg.Number)
	case CameraCommand:
		r.handler.OnCommand(msg.Command)
	}
}

// Stats returns parse counters
func (r *CameraReader) Stats() CameraStats {
	return r.stats
}
