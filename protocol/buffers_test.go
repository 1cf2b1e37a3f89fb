package protocol

import "testing"

func TestSliceInputBuffer(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	buf := NewSliceInputBuffer(data)

	if buf.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", buf.Available())
	}

	bufData := buf.Data()
	if len(bufData) != 5 {
		t.Errorf("Expected 5 bytes in data, got %d", len(bufData))
	}

	buf.Pop(2)
	if buf.Available() != 3 {
		t.Errorf("After popping 2, expected 3 bytes available, got %d", buf.Available())
	}

	bufData = buf.Data()
	if len(bufData) != 3 || bufData[0] != 3 {
		t.Errorf("After popping 2, expected first byte to be 3, got %d", bufData[0])
	}
}

func TestRing(t *testing.T) {
	ring := NewRing(10)

	if !ring.IsEmpty() {
		t.Error("New ring should be empty")
	}
	if ring.Free() != 16 {
		t.Errorf("Expected capacity rounded to 16, got %d", ring.Free())
	}

	written, err := ring.Write([]byte{1, 2, 3, 4, 5})
	if err != nil || written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d (%v)", written, err)
	}
	if ring.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", ring.Available())
	}

	b, ok := ring.Get()
	if !ok || b != 1 {
		t.Errorf("Expected to get 1, got %d (%v)", b, ok)
	}

	ring.Pop(2)
	data := ring.Data()
	if len(data) != 2 || data[0] != 4 || data[1] != 5 {
		t.Errorf("Expected [4 5], got %v", data)
	}

	ring.Pop(10)
	if !ring.IsEmpty() {
		t.Errorf("Pop past the end should empty the ring, %d left", ring.Available())
	}
	if _, ok := ring.Get(); ok {
		t.Error("Get on empty ring should fail")
	}
}

func TestRingOverflow(t *testing.T) {
	ring := NewRing(4)

	written, _ := ring.Write([]byte{1, 2, 3, 4, 5, 6})
	if written != 4 {
		t.Errorf("Expected to write 4 bytes, wrote %d", written)
	}
	if ring.Dropped() != 1 {
		t.Errorf("Expected 1 dropped byte, got %d", ring.Dropped())
	}
	if ring.Put(7) {
		t.Error("Put into a full ring should fail")
	}
	if ring.Dropped() != 2 {
		t.Errorf("Expected 2 dropped bytes, got %d", ring.Dropped())
	}
}

func TestRingWrapAround(t *testing.T) {
	ring := NewRing(4)

	ring.Write([]byte{1, 2, 3})
	ring.Pop(2)
	ring.Write([]byte{4, 5, 6})

	data := ring.Data()
	want := []byte{3, 4, 5, 6}
	if len(data) != len(want) {
		t.Fatalf("Expected %v, got %v", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("Wrap-around data mismatch: got %v", data)
			break
		}
	}

	ring.Reset()
	if !ring.IsEmpty() {
		t.Error("Reset should empty the ring")
	}
}
