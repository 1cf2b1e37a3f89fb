//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"trackcar/core"
)

// RP2040 timer peripheral
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // raw high word, no latching
	timerTIMERAWL = timerBase + 0x28 // raw low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// GetHardwareUptime reads the free-running 64-bit microsecond timer
func GetHardwareUptime() uint64 {
	// High, low, high again: a changed high word means the low word wrapped
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

// UpdateSystemTime copies the hardware timer into the core millisecond
// counter. Called once per main loop pass.
func UpdateSystemTime() {
	core.SetMillis(uint32(GetHardwareUptime() / 1000))
}

// InitClock starts the core clock from the hardware timer
func InitClock() {
	UpdateSystemTime()
	core.TimerInit()
}
