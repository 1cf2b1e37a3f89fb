package protocol

import (
	"errors"
	"io"
	"sync/atomic"
)

var (
	ErrPayloadTooLarge = errors.New("payload exceeds packet size")
	ErrNoWriter        = errors.New("link has no output")
)

// PacketHandler receives the payload of every valid packet
type PacketHandler func(payload []byte) error

// LinkStats counts link events since the last Reset
type LinkStats struct {
	Received      uint32
	Sent          uint32
	Duplicates    uint32
	FramingErrors uint32
	CRCErrors     uint32
	HandlerErrors uint32
	Resyncs       uint32
}

// Link frames payloads as
//
//	[len][seq][payload...][crc16 hi][crc16 lo][0x7E]
//
// where len counts the whole packet and the CRC covers len, seq and the
// payload. The high nibble of seq carries the direction. On a length,
// trailer or CRC error the receiver drops bytes up to the next 0x7E.
type Link struct {
	isSynchronized uint32 // atomic bool (0 = false, 1 = true)
	lastSeq        int16  // -1 until the first packet
	txSeq          uint8
	outDir         byte
	inDir          byte

	out     io.Writer
	handler PacketHandler
	stats   LinkStats
	txBuf   [PacketMax]byte
}

// NewLink creates a link writing to out. outDir is PacketDirToHost on the car
// and PacketDirToCar on the host.
func NewLink(out io.Writer, outDir byte, handler PacketHandler) *Link {
	inDir := byte(PacketDirToCar)
	if outDir == PacketDirToCar {
		inDir = PacketDirToHost
	}
	return &Link{
		isSynchronized: 1,
		lastSeq:        -1,
		outDir:         outDir,
		inDir:          inDir,
		out:            out,
		handler:        handler,
	}
}

// SetHandler replaces the packet handler
func (l *Link) SetHandler(handler PacketHandler) {
	l.handler = handler
}

// Receive consumes complete packets from input and leaves a trailing partial
// packet in place
func (l *Link) Receive(input InputBuffer) {
	data := input.Data()
	for len(data) > 0 {
		if !l.getSynchronized() {
			pos := -1
			for i, b := range data {
				if b == PacketSync {
					pos = i
					break
				}
			}
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos+1:]
			l.setSynchronized(true)
			l.stats.Resyncs++
			continue
		}

		if data[0] == PacketSync {
			data = data[1:]
			continue
		}
		if len(data) < PacketMin {
			break
		}
		n := int(data[0])
		if n < PacketMin || n > PacketMax {
			l.desync(&l.stats.FramingErrors)
			continue
		}
		seq := data[1]
		if seq&^PacketSeqMask != l.inDir {
			l.desync(&l.stats.FramingErrors)
			continue
		}
		if len(data) < n {
			break
		}
		if data[n-1] != PacketSync {
			l.desync(&l.stats.FramingErrors)
			continue
		}
		want := uint16(data[n-3])<<8 | uint16(data[n-2])
		if CRC16(data[:n-PacketTrailer]) != want {
			l.desync(&l.stats.CRCErrors)
			continue
		}

		payload := data[PacketHeader : n-PacketTrailer]
		data = data[n:]
		if int16(seq) == l.lastSeq {
			l.stats.Duplicates++
			continue
		}
		l.lastSeq = int16(seq)
		l.stats.Received++
		l.dispatch(payload)
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (l *Link) dispatch(payload []byte) {
	if l.handler == nil {
		return
	}
	// A faulty handler must not take the receive loop down with it
	defer func() {
		if r := recover(); r != nil {
			l.stats.HandlerErrors++
		}
	}()
	if err := l.handler(payload); err != nil {
		l.stats.HandlerErrors++
	}
}

func (l *Link) desync(counter *uint32) {
	*counter++
	l.setSynchronized(false)
}

// EncodePacket appends one framed packet to dst
func EncodePacket(dst []byte, seq byte, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, ErrPayloadTooLarge
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+PacketMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), PacketSync), nil
}

// Send frames payload and writes it out
func (l *Link) Send(payload []byte) error {
	if l.out == nil {
		return ErrNoWriter
	}
	seq := l.outDir | l.txSeq&PacketSeqMask
	pkt, err := EncodePacket(l.txBuf[:0], seq, payload)
	if err != nil {
		return err
	}
	if _, err := l.out.Write(pkt); err != nil {
		return err
	}
	l.txSeq++
	l.stats.Sent++
	return nil
}

// SendCommand sends [id VLQ][args]
func (l *Link) SendCommand(id uint16, args []byte) error {
	var buf [PayloadMax]byte
	p := AppendVLQUint(buf[:0], uint32(id))
	if len(p)+len(args) > PayloadMax {
		return ErrPayloadTooLarge
	}
	return l.Send(append(p, args...))
}

// SendByte sends a single raw byte to the peer
func (l *Link) SendByte(b byte) error {
	id := uint16(RespByte)
	if l.outDir == PacketDirToCar {
		id = CmdByte
	}
	return l.SendCommand(id, []byte{b})
}

// Stats returns the link counters
func (l *Link) Stats() LinkStats {
	return l.stats
}

// Reset resynchronizes and clears counters (after a reconnect)
func (l *Link) Reset() {
	l.setSynchronized(true)
	l.lastSeq = -1
	l.stats = LinkStats{}
}

func (l *Link) getSynchronized() bool {
	return atomic.LoadUint32(&l.isSynchronized) != 0
}

func (l *Link) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&l.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&l.isSynchronized, 0)
	}
}
