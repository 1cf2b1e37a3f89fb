package core

// Timer is a one-shot event ordered by WakeTime (milliseconds)
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Handler results
const (
	TimerDone       = 0
	TimerReschedule = 1
)

// TimerQueue keeps pending timers sorted by wake time
type TimerQueue struct {
	head *Timer
}

// Schedule inserts t. A timer that is already queued must not be scheduled
// again.
func (q *TimerQueue) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	q.insert(t)
}

// Cancel removes t if it is queued
func (q *TimerQueue) Cancel(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for p := &q.head; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return
		}
	}
}

// Pending returns the number of queued timers
func (q *TimerQueue) Pending() int {
	n := 0
	for t := q.head; t != nil; t = t.Next {
		n++
	}
	return n
}

// insert keeps the list ordered; equal wake times run in insertion order
func (q *TimerQueue) insert(t *Timer) {
	if q.head == nil || before(t.WakeTime, q.head.WakeTime) {
		t.Next = q.head
		q.head = t
		return
	}
	cur := q.head
	for cur.Next != nil && !before(t.WakeTime, cur.Next.WakeTime) {
		cur = cur.Next
	}
	t.Next = cur.Next
	cur.Next = t
}

// Dispatch runs every timer due at now. Handlers returning TimerReschedule
// must have moved their WakeTime forward.
func (q *TimerQueue) Dispatch(now uint32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for q.head != nil && !before(now, q.head.WakeTime) {
		t := q.head
		q.head = t.Next
		t.Next = nil
		if t.Handler(t) == TimerReschedule {
			q.insert(t)
		}
	}
}

// before compares wrapping millisecond times
func before(a, b uint32) bool {
	return int32(a-b) < 0
}
