package core

// Beeper drives a buzzer through a TimerQueue. It implements Alerter.
type Beeper struct {
	out       func(on bool)
	queue     *TimerQueue
	now       func() uint32
	timer     Timer
	remaining int
	on        bool

	OnMS  uint32
	OffMS uint32
}

// NewBeeper creates a beeper writing to out
func NewBeeper(out func(on bool), queue *TimerQueue) *Beeper {
	b := &Beeper{out: out, queue: queue, now: Millis, OnMS: 100, OffMS: 100}
	b.timer.Handler = b.edge
	return b
}

// Alert queues count beeps after any beeps still pending
func (b *Beeper) Alert(count int) {
	if count <= 0 {
		return
	}
	busy := b.remaining > 0
	b.remaining += count
	if busy {
		return
	}
	b.on = true
	b.out(true)
	b.timer.WakeTime = b.now() + b.OnMS
	b.queue.Schedule(&b.timer)
}

// Busy reports whether beeps are pending
func (b *Beeper) Busy() bool {
	return b.remaining > 0
}

func (b *Beeper) edge(t *Timer) uint8 {
	if b.on {
		b.on = false
		b.out(false)
		b.remaining--
		if b.remaining <= 0 {
			b.remaining = 0
			return TimerDone
		}
		t.WakeTime += b.OffMS
		return TimerReschedule
	}
	b.on = true
	b.out(true)
	t.WakeTime += b.OnMS
	return TimerReschedule
}
