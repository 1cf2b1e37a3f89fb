package core

// TickHz is the rate of the system tick counter
const TickHz = 1000

var bootMillis uint32

// Millis returns the milliseconds counted since boot. The counter wraps after
// about 49 days; compare times by subtraction.
func Millis() uint32 {
	return getSystemTicks()
}

// SetMillis sets the tick counter (for testing/hardware integration)
func SetMillis(ms uint32) {
	setSystemTicks(ms)
}

// AdvanceMillis moves the tick counter forward by ms
func AdvanceMillis(ms uint32) {
	addSystemTicks(ms)
}

// TickISR is called from the 1 kHz tick interrupt
func TickISR() {
	addSystemTicks(1)
}

// Uptime returns milliseconds since TimerInit
func Uptime() uint32 {
	return Millis() - bootMillis
}

// TimerInit latches the boot time
func TimerInit() {
	bootMillis = Millis()
}

// Elapsed reports whether period ms have passed since last
func Elapsed(now, last, period uint32) bool {
	return now-last >= period
}
