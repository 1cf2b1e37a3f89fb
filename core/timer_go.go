//go:build !tinygo

package core

import "sync/atomic"

// Host builds keep the tick in a plain atomic so tests can drive the clock
// from any goroutine.
var systemTicks atomic.Uint32

func getSystemTicks() uint32 {
	return systemTicks.Load()
}

func setSystemTicks(ticks uint32) {
	systemTicks.Store(ticks)
}

func addSystemTicks(delta uint32) {
	systemTicks.Add(delta)
}
