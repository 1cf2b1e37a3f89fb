package core

import (
	"testing"

	"trackcar/protocol"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var called bool
	handler := func(data *[]byte) error {
		called = true
		return nil
	}

	if err := registry.Register(7, "test_command", "arg=%u", handler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	cmd, ok := registry.Lookup(7)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}
	if _, ok := registry.LookupName("test_command"); !ok {
		t.Error("Failed to find command by name")
	}

	var data []byte
	if err := registry.Dispatch(7, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Command handler was not called")
	}

	if err := registry.Dispatch(999, &data); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommandRegistryErrors(t *testing.T) {
	registry := NewCommandRegistry()

	registry.Register(1, "one", "", func(data *[]byte) error { return nil })
	if err := registry.Register(1, "again", "", nil); err != ErrCommandExists {
		t.Errorf("Expected ErrCommandExists, got %v", err)
	}

	// Entries without a handler describe outgoing messages
	registry.Register(2, "reply", "", nil)
	var data []byte
	if err := registry.Dispatch(2, &data); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand for a reply id, got %v", err)
	}

	for id := uint16(3); registry.Count() < MaxCommands; id++ {
		registry.Register(id, "filler", "", nil)
	}
	if err := registry.Register(500, "overflow", "", nil); err != ErrCommandTableFull {
		t.Errorf("Expected ErrCommandTableFull, got %v", err)
	}
	if len(registry.Commands()) != MaxCommands {
		t.Errorf("Expected %d commands, got %d", MaxCommands, len(registry.Commands()))
	}
}

func TestCommandRegistryHandlePacket(t *testing.T) {
	registry := NewCommandRegistry()

	var got int32
	registry.Register(130, "set", "value=%i", func(data *[]byte) error {
		v, err := protocol.DecodeVLQInt(data)
		got = v
		return err
	})

	payload := protocol.AppendVLQUint(nil, 130)
	payload = protocol.AppendVLQInt(payload, -1234)
	if err := registry.HandlePacket(payload); err != nil {
		t.Fatalf("HandlePacket failed: %v", err)
	}
	if got != -1234 {
		t.Errorf("Expected -1234, got %d", got)
	}

	if err := registry.HandlePacket(nil); err != protocol.ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for an empty packet, got %v", err)
	}
}

func TestCommandRegistryHandlePacketWideID(t *testing.T) {
	registry := NewCommandRegistry()

	hits := 0
	registry.Register(3, "low", "", func(data *[]byte) error {
		hits++
		return nil
	})

	// 0x10003 would alias command 3 if the id were truncated
	if err := registry.HandlePacket(protocol.AppendVLQUint(nil, 0x10003)); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
	if hits != 0 {
		t.Errorf("Expected no handler call, got %d", hits)
	}

	if err := registry.HandlePacket(protocol.AppendVLQUint(nil, 3)); err != nil || hits != 1 {
		t.Errorf("Expected command 3 to dispatch once, got %d calls and %v", hits, err)
	}
}
