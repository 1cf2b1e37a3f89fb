// Package pio drives the 74HC595 that holds the H-bridge direction inputs,
// either from a PIO state machine or by bit-banging GPIO.
package pio

// countBits is the width of the bit-count field leading each FIFO word
const countBits = 3

// shiftWord packs bits for the PIO program: the low three bits hold the bit
// count minus one, followed by the data with Q7 first so that it ends up in
// the last stage of the register.
func shiftWord(bits uint8) uint32 {
	w := uint32(7)
	for i := 0; i < 8; i++ {
		if bits&(0x80>>i) != 0 {
			w |= 1 << (countBits + i)
		}
	}
	return w
}

// serialOrder returns the bits in the order they are clocked out
func serialOrder(bits uint8) [8]bool {
	var out [8]bool
	for i := range out {
		out[i] = bits&(0x80>>i) != 0
	}
	return out
}
