package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// AppendVLQInt appends v in Klipper's signed VLQ encoding: seven bits per
// byte, most significant group first, high bit set on every byte but the last.
func AppendVLQInt(dst []byte, v int32) []byte {
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// AppendVLQUint appends an unsigned value
func AppendVLQUint(dst []byte, v uint32) []byte {
	return AppendVLQInt(dst, int32(v))
}

// DecodeVLQInt decodes one value and advances data past it
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}
	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F) // negative: sign-extend the first group
	}
	for n := 1; c&0x80 != 0; n++ {
		if n > 4 {
			return 0, ErrInvalidVLQ
		}
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7F
	}
	return int32(v), nil
}

// DecodeVLQUint decodes one unsigned value and advances data past it
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// DecodeByte takes one raw byte argument
func DecodeByte(data *[]byte) (byte, error) {
	if len(*data) == 0 {
		return 0, ErrBufferTooSmall
	}
	b := (*data)[0]
	*data = (*data)[1:]
	return b, nil
}

// AppendVLQBytes appends a length-prefixed byte string
func AppendVLQBytes(dst []byte, b []byte) []byte {
	dst = AppendVLQUint(dst, uint32(len(b)))
	return append(dst, b...)
}

// DecodeVLQBytes takes a length-prefixed byte string. The result aliases
// data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrBufferTooSmall
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}
