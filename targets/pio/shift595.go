//go:build rp2040

package pio

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

var ErrNoStateMachine = errors.New("pio: no free state machine")

// buildShiftProgram clocks one FIFO word into the 595 and latches it.
// SET drives clock (bit 0) and latch (bit 1); OUT drives the data pin.
func buildShiftProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                   // 0: pull block
		asm.Out(rp2pio.OutDestX, countBits).Encode(),     // 1: out x, 3 (bits - 1)
		asm.Out(rp2pio.OutDestPins, 1).Encode(),          // 2: out pins, 1
		asm.Set(rp2pio.SetDestPins, 1).Delay(1).Encode(), // 3: set pins, 1 [1] (clock)
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 4: set pins, 0
		asm.Jmp(2, rp2pio.JmpXNZeroDec).Encode(),         // 5: jmp x--, 2
		asm.Set(rp2pio.SetDestPins, 2).Delay(1).Encode(), // 6: set pins, 2 [1] (latch)
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 7: set pins, 0
		// .wrap
	}
}

// Jumps are absolute, so the program is loaded at 0
const shiftOrigin = 0

// ShiftPIO feeds the 595 from a PIO state machine. The latch pin must be
// the pin after the clock pin.
type ShiftPIO struct {
	pio   *rp2pio.PIO
	sm    rp2pio.StateMachine
	data  machine.Pin
	clock machine.Pin
	last  uint8
}

// NewShiftPIO claims state machine smNum of PIO block pioNum and starts
// the program
func NewShiftPIO(pioNum, smNum uint8, data, clock machine.Pin) (*ShiftPIO, error) {
	hw := rp2pio.PIO0
	if pioNum == 1 {
		hw = rp2pio.PIO1
	}
	s := &ShiftPIO{pio: hw, sm: hw.StateMachine(smNum), data: data, clock: clock}
	if !s.sm.TryClaim() {
		return nil, ErrNoStateMachine
	}

	program := buildShiftProgram()
	offset, err := s.pio.AddProgram(program, shiftOrigin)
	if err != nil {
		return nil, err
	}

	latch := clock + 1
	for _, p := range []machine.Pin{data, clock, latch} {
		p.Configure(machine.PinConfig{Mode: s.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(clock, 2)
	cfg.SetOutPins(data, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	// 125 MHz / 125 keeps each edge at 1 µs, well inside the 595 timing
	cfg.SetClkDivIntFrac(125, 0)

	s.sm.Init(offset, cfg)
	s.sm.SetPindirsConsecutive(data, 1, true)
	s.sm.SetPindirsConsecutive(clock, 2, true)
	s.sm.SetPinsConsecutive(data, 1, false)
	s.sm.SetPinsConsecutive(clock, 2, false)
	s.sm.SetEnabled(true)
	return s, nil
}

// Latch queues bits; it implements core.DirectionLatch
func (s *ShiftPIO) Latch(bits uint8) {
	for s.sm.IsTxFIFOFull() {
	}
	s.sm.TxPut(shiftWord(bits))
	s.last = bits
}

// Stop disables the state machine and drops queued words
func (s *ShiftPIO) Stop() {
	s.sm.SetEnabled(false)
	s.sm.ClearFIFOs()
	s.sm.Restart()
}
