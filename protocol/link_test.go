package protocol

import (
	"bytes"
	"errors"
	"testing"
)

type linkPair struct {
	wire     bytes.Buffer
	host     *Link
	car      *Link
	payloads [][]byte
}

func newLinkPair() *linkPair {
	p := &linkPair{}
	p.host = NewLink(&p.wire, PacketDirToCar, nil)
	p.car = NewLink(nil, PacketDirToHost, func(payload []byte) error {
		p.payloads = append(p.payloads, append([]byte(nil), payload...))
		return nil
	})
	return p
}

func TestEncodePacket(t *testing.T) {
	pkt, err := EncodePacket(nil, PacketDirToCar|3, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if len(pkt) != 7 {
		t.Fatalf("Expected 7 bytes, got %d", len(pkt))
	}
	if pkt[0] != 7 || pkt[1] != PacketDirToCar|3 || pkt[6] != PacketSync {
		t.Errorf("Unexpected header/trailer: %v", pkt)
	}
	crc := CRC16(pkt[:4])
	if pkt[4] != byte(crc>>8) || pkt[5] != byte(crc) {
		t.Errorf("Expected crc %04X, got %02X%02X", crc, pkt[4], pkt[5])
	}

	if _, err := EncodePacket(nil, 0, make([]byte, PayloadMax+1)); err != ErrPayloadTooLarge {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestLinkRoundTrip(t *testing.T) {
	p := newLinkPair()

	if err := p.host.SendCommand(CmdStart, []byte{2}); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if err := p.host.SendByte('A'); err != nil {
		t.Fatalf("SendByte failed: %v", err)
	}

	p.car.Receive(NewSliceInputBuffer(p.wire.Bytes()))

	if len(p.payloads) != 2 {
		t.Fatalf("Expected 2 payloads, got %d", len(p.payloads))
	}
	if !bytes.Equal(p.payloads[0], []byte{CmdStart, 2}) {
		t.Errorf("Expected start payload, got %v", p.payloads[0])
	}
	if !bytes.Equal(p.payloads[1], []byte{CmdByte, 'A'}) {
		t.Errorf("Expected byte payload, got %v", p.payloads[1])
	}
	if s := p.host.Stats(); s.Sent != 2 {
		t.Errorf("Expected 2 sent, got %d", s.Sent)
	}
	if s := p.car.Stats(); s.Received != 2 {
		t.Errorf("Expected 2 received, got %d", s.Received)
	}
}

func TestLinkPartialPacket(t *testing.T) {
	p := newLinkPair()
	p.host.SendCommand(CmdStop, nil)
	pkt := p.wire.Bytes()

	ring := NewRing(64)
	ring.Write(pkt[:3])
	p.car.Receive(ring)
	if len(p.payloads) != 0 {
		t.Fatalf("Partial packet should not be delivered")
	}
	if ring.Available() != 3 {
		t.Errorf("Expected partial packet to stay buffered, %d bytes left", ring.Available())
	}

	ring.Write(pkt[3:])
	p.car.Receive(ring)
	if len(p.payloads) != 1 {
		t.Fatalf("Expected 1 payload, got %d", len(p.payloads))
	}
	if !ring.IsEmpty() {
		t.Errorf("Expected ring drained, %d bytes left", ring.Available())
	}
}

func TestLinkResyncAfterGarbage(t *testing.T) {
	p := newLinkPair()
	p.host.SendCommand(CmdPing, nil)

	stream := append([]byte{0x03, 0x99, PacketSync}, p.wire.Bytes()...)
	p.car.Receive(NewSliceInputBuffer(stream))

	if len(p.payloads) != 1 {
		t.Fatalf("Expected 1 payload after resync, got %d", len(p.payloads))
	}
	s := p.car.Stats()
	if s.FramingErrors != 1 || s.Resyncs != 1 {
		t.Errorf("Expected 1 framing error and 1 resync, got %+v", s)
	}
}

func TestLinkCRCError(t *testing.T) {
	p := newLinkPair()
	p.host.SendCommand(CmdSelect, []byte{1})
	first := p.wire.Len()
	p.host.SendCommand(CmdSelect, []byte{2})

	stream := append([]byte(nil), p.wire.Bytes()...)
	stream[3] ^= 0xFF // corrupt the first argument
	p.car.Receive(NewSliceInputBuffer(stream))

	if len(p.payloads) != 1 {
		t.Fatalf("Expected only the second packet, got %d", len(p.payloads))
	}
	if p.payloads[0][1] != 2 {
		t.Errorf("Expected route 2, got %d", p.payloads[0][1])
	}
	if s := p.car.Stats(); s.CRCErrors != 1 {
		t.Errorf("Expected 1 CRC error, got %d", s.CRCErrors)
	}
	if first != 7 {
		t.Errorf("Expected 7 byte packet, got %d", first)
	}
}

func TestLinkDirectionMismatch(t *testing.T) {
	var wire bytes.Buffer
	car := NewLink(&wire, PacketDirToHost, nil)
	car.SendByte('x')

	received := 0
	other := NewLink(nil, PacketDirToHost, func([]byte) error { received++; return nil })
	other.Receive(NewSliceInputBuffer(wire.Bytes()))

	if received != 0 {
		t.Error("Packet with the wrong direction should be rejected")
	}
	if s := other.Stats(); s.FramingErrors != 1 {
		t.Errorf("Expected 1 framing error, got %d", s.FramingErrors)
	}
}

func TestLinkDuplicate(t *testing.T) {
	p := newLinkPair()
	p.host.SendCommand(CmdStop, nil)
	pkt := p.wire.Bytes()

	stream := append(append([]byte(nil), pkt...), pkt...)
	p.car.Receive(NewSliceInputBuffer(stream))

	if len(p.payloads) != 1 {
		t.Errorf("Expected duplicate to be dropped, got %d payloads", len(p.payloads))
	}
	if s := p.car.Stats(); s.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", s.Duplicates)
	}
}

func TestLinkHandlerFailures(t *testing.T) {
	var wire bytes.Buffer
	host := NewLink(&wire, PacketDirToCar, nil)
	host.SendCommand(CmdPing, nil)
	host.SendCommand(CmdStop, nil)

	calls := 0
	car := NewLink(nil, PacketDirToHost, func(payload []byte) error {
		calls++
		if payload[0] == CmdPing {
			return errors.New("boom")
		}
		panic("handler panic")
	})
	car.Receive(NewSliceInputBuffer(wire.Bytes()))

	if calls != 2 {
		t.Errorf("Expected 2 handler calls, got %d", calls)
	}
	if s := car.Stats(); s.HandlerErrors != 2 {
		t.Errorf("Expected 2 handler errors, got %d", s.HandlerErrors)
	}
}

func TestLinkNoWriter(t *testing.T) {
	l := NewLink(nil, PacketDirToHost, nil)
	if err := l.SendByte(1); err != ErrNoWriter {
		t.Errorf("Expected ErrNoWriter, got %v", err)
	}
}
