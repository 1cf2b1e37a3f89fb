package protocol

import "sync/atomic"

// InputBuffer provides an abstraction for reading incoming link data
type InputBuffer interface {
	// Data returns the available data slice
	Data() []byte

	// Available returns the number of bytes available
	Available() int

	// Pop removes n bytes from the front of the buffer
	Pop(n int)
}

// SliceInputBuffer implements InputBuffer using a byte slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// Ring is a single-producer single-consumer byte queue. The producer is
// typically a UART interrupt calling Put; the consumer is a periodic task.
// Capacity is rounded up to a power of two.
type Ring struct {
	buf  []byte
	mask uint32
	head uint32 // written by the producer only
	tail uint32 // written by the consumer only

	dropped uint32
	scratch []byte
}

// NewRing creates a ring holding at least capacity bytes
func NewRing(capacity int) *Ring {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring{buf: make([]byte, size), mask: uint32(size - 1), scratch: make([]byte, 0, size)}
}

// Put appends one byte; it drops the byte when the ring is full
func (r *Ring) Put(b byte) bool {
	head := atomic.LoadUint32(&r.head)
	tail := atomic.LoadUint32(&r.tail)
	if head-tail > r.mask {
		atomic.AddUint32(&r.dropped, 1)
		return false
	}
	r.buf[head&r.mask] = b
	atomic.StoreUint32(&r.head, head+1)
	return true
}

// Write appends data and returns the number of bytes stored
func (r *Ring) Write(data []byte) (int, error) {
	n := 0
	for _, b := range data {
		if !r.Put(b) {
			break
		}
		n++
	}
	return n, nil
}

// Available returns the number of bytes available for reading
func (r *Ring) Available() int {
	return int(atomic.LoadUint32(&r.head) - atomic.LoadUint32(&r.tail))
}

// Free returns the number of bytes available for writing
func (r *Ring) Free() int {
	return len(r.buf) - r.Available()
}

// Dropped returns how many bytes Put discarded
func (r *Ring) Dropped() uint32 {
	return atomic.LoadUint32(&r.dropped)
}

// Get removes one byte
func (r *Ring) Get() (byte, bool) {
	tail := atomic.LoadUint32(&r.tail)
	if tail == atomic.LoadUint32(&r.head) {
		return 0, false
	}
	b := r.buf[tail&r.mask]
	atomic.StoreUint32(&r.tail, tail+1)
	return b, true
}

// Data returns the readable bytes as one contiguous slice. The slice is
// valid until the next call to Data.
func (r *Ring) Data() []byte {
	tail := atomic.LoadUint32(&r.tail)
	head := atomic.LoadUint32(&r.head)
	r.scratch = r.scratch[:0]
	for i := tail; i != head; i++ {
		r.scratch = append(r.scratch, r.buf[i&r.mask])
	}
	return r.scratch
}

// Pop removes n bytes from the front
func (r *Ring) Pop(n int) {
	avail := r.Available()
	if n > avail {
		n = avail
	}
	atomic.AddUint32(&r.tail, uint32(n))
}

// IsEmpty returns true if the ring is empty
func (r *Ring) IsEmpty() bool {
	return r.Available() == 0
}

// Reset discards all data. Only safe while the producer is idle.
func (r *Ring) Reset() {
	atomic.StoreUint32(&r.tail, atomic.LoadUint32(&r.head))
}
