// Package tinycompress writes zlib streams built from stored DEFLATE blocks.
// Any inflater reads them, and the microcontroller needs no tables or
// hashing to produce them.
package tinycompress

import (
	"bytes"
	"errors"
	"hash"
	"hash/adler32"
	"io"
)

var (
	ErrClosed  = errors.New("tinycompress: write after close")
	ErrCorrupt = errors.New("tinycompress: corrupt stream")
)

// maxStored is the largest stored block DEFLATE allows
const maxStored = 0xFFFF

var zlibHeader = [2]byte{0x78, 0x01}

// Writer buffers input and emits it as stored blocks. Full blocks are
// written as they fill; Close writes the final block and the checksum.
type Writer struct {
	out    io.Writer
	buf    []byte
	adler  hash.Hash32
	header bool
	closed bool
}

// NewWriter returns a Writer emitting to w. Buffer space for one block is
// taken up front so Write does not allocate.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		out:   w,
		buf:   make([]byte, 0, 1024),
		adler: adler32.New(),
	}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	w.adler.Write(p)
	n := len(p)
	for len(p) > 0 {
		room := maxStored - len(w.buf)
		if room > len(p) {
			room = len(p)
		}
		w.buf = append(w.buf, p[:room]...)
		p = p[room:]
		if len(w.buf) == maxStored {
			if err := w.block(false); err != nil {
				return n - len(p), err
			}
		}
	}
	return n, nil
}

// Close writes the final block and the Adler-32 trailer
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.block(true); err != nil {
		return err
	}
	sum := w.adler.Sum32()
	_, err := w.out.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	return err
}

func (w *Writer) block(final bool) error {
	if !w.header {
		if _, err := w.out.Write(zlibHeader[:]); err != nil {
			return err
		}
		w.header = true
	}
	var bfinal byte
	if final {
		bfinal = 1
	}
	n := uint16(len(w.buf))
	hdr := [5]byte{bfinal, byte(n), byte(n >> 8), byte(^n), byte(^n >> 8)}
	if _, err := w.out.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.out.Write(w.buf); err != nil {
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

// Compress wraps data in a complete stream
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Decode inflates a stream made of stored blocks only, as produced by
// Writer, and verifies its checksum.
func Decode(stream []byte) ([]byte, error) {
	if len(stream) < 2+4 || stream[0]&0x0F != 8 || (uint16(stream[0])<<8|uint16(stream[1]))%31 != 0 {
		return nil, ErrCorrupt
	}
	pos := 2
	var out []byte
	for {
		if pos+5 > len(stream) {
			return nil, ErrCorrupt
		}
		hdr := stream[pos]
		if hdr>>1&0x03 != 0 {
			return nil, ErrCorrupt
		}
		n := int(stream[pos+1]) | int(stream[pos+2])<<8
		nn := int(stream[pos+3]) | int(stream[pos+4])<<8
		if n != ^nn&0xFFFF {
			return nil, ErrCorrupt
		}
		pos += 5
		if pos+n > len(stream) {
			return nil, ErrCorrupt
		}
		out = append(out, stream[pos:pos+n]...)
		pos += n
		if hdr&1 != 0 {
			break
		}
	}
	if pos+4 != len(stream) {
		return nil, ErrCorrupt
	}
	want := uint32(stream[pos])<<24 | uint32(stream[pos+1])<<16 | uint32(stream[pos+2])<<8 | uint32(stream[pos+3])
	if adler32.Checksum(out) != want {
		return nil, ErrCorrupt
	}
	return out, nil
}
