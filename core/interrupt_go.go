//go:build !tinygo

package core

// State stands in for the saved interrupt mask on host builds
type State uintptr

// disableInterrupts is a no-op on host builds, where nothing runs in
// interrupt context
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on host builds
func restoreInterrupts(state State) {}
