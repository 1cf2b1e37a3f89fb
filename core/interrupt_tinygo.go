//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts while ISR-shared state is touched and
// returns the previous mask
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the saved mask
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
