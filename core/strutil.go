package core

// itoa converts an integer to a string without the fmt package
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// ftoa formats v with a fixed number of decimals, truncating toward zero
func ftoa(v float32, decimals int) string {
	negative := v < 0
	if negative {
		v = -v
	}
	scale := 1
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	whole := int(v)
	frac := int((v - float32(whole)) * float32(scale))

	s := itoa(whole)
	if decimals > 0 {
		f := itoa(frac)
		for len(f) < decimals {
			f = "0" + f
		}
		s += "." + f
	}
	if negative && (whole != 0 || frac != 0) {
		s = "-" + s
	}
	return s
}
