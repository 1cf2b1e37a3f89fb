package protocol

import (
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, -32, 95, 96, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000,
		1<<31 - 1, -1 << 31,
	}

	for _, expected := range testCases {
		encoded := AppendVLQInt(nil, expected)

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}

		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQEncodeDecodeUint(t *testing.T) {
	testCases := []uint32{0, 1, 127, 128, 255, 1000, 65535, 1000000, 0xFFFFFFFF}

	for _, expected := range testCases {
		data := AppendVLQUint(nil, expected)
		decoded, err := DecodeVLQUint(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}

		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d", expected, decoded)
		}
	}
}

func TestVLQSingleByteRange(t *testing.T) {
	for _, v := range []int32{-32, -1, 0, 95} {
		if n := len(AppendVLQInt(nil, v)); n != 1 {
			t.Errorf("Expected %d to encode in 1 byte, got %d", v, n)
		}
	}
	for _, v := range []int32{-33, 96} {
		if n := len(AppendVLQInt(nil, v)); n != 2 {
			t.Errorf("Expected %d to encode in 2 bytes, got %d", v, n)
		}
	}
}

func TestVLQSequence(t *testing.T) {
	var buf []byte
	buf = AppendVLQUint(buf, CmdStart)
	buf = AppendVLQInt(buf, -350)
	buf = append(buf, 'A')

	id, err := DecodeVLQUint(&buf)
	if err != nil || id != CmdStart {
		t.Fatalf("Expected id %d, got %d (%v)", CmdStart, id, err)
	}
	v, err := DecodeVLQInt(&buf)
	if err != nil || v != -350 {
		t.Errorf("Expected -350, got %d (%v)", v, err)
	}
	b, err := DecodeByte(&buf)
	if err != nil || b != 'A' {
		t.Errorf("Expected 'A', got %q (%v)", b, err)
	}
	if _, err := DecodeByte(&buf); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80} // Continuation byte but no following byte
	_, err := DecodeVLQInt(&data)
	if err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	data = []byte{}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}
}

func TestVLQTooLong(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}

func TestVLQBytes(t *testing.T) {
	data := AppendVLQBytes(nil, []byte("abc"))
	data = AppendVLQUint(data, 7)

	b, err := DecodeVLQBytes(&data)
	if err != nil {
		t.Fatalf("DecodeVLQBytes failed: %v", err)
	}
	if string(b) != "abc" {
		t.Errorf("Expected abc, got %q", b)
	}
	if v, _ := DecodeVLQUint(&data); v != 7 {
		t.Errorf("Expected trailing 7, got %d", v)
	}

	short := []byte{5, 'a'}
	if _, err := DecodeVLQBytes(&short); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}
