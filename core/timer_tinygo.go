//go:build tinygo

package core

import "sync/atomic"

// systemTicksValue is written by the tick ISR and read from the main loop
var systemTicksValue uint32

// getSystemTicks returns the current system ticks
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

// setSystemTicks sets the system ticks
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}

// addSystemTicks advances the counter from interrupt context
func addSystemTicks(delta uint32) {
	atomic.AddUint32(&systemTicksValue, delta)
}
