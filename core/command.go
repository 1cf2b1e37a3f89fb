package core

import (
	"errors"

	"trackcar/protocol"
)

// CommandHandler decodes its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is a remote command carried over the bluetooth link
type Command struct {
	ID      uint16
	Name    string
	Format  string // argument description, e.g. "route=%u"
	Handler CommandHandler
}

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrCommandExists    = errors.New("command id already registered")
	ErrCommandTableFull = errors.New("command table full")
)

// MaxCommands bounds the registry
const MaxCommands = 32

// CommandRegistry maps fixed command IDs to handlers.
// Entries with a nil handler describe messages sent by the car.
type CommandRegistry struct {
	commands [MaxCommands]Command
	count    int
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register adds a command under a fixed id
func (r *CommandRegistry) Register(id uint16, name, format string, handler CommandHandler) error {
	if _, ok := r.Lookup(id); ok {
		return ErrCommandExists
	}
	if r.count >= MaxCommands {
		return ErrCommandTableFull
	}
	r.commands[r.count] = Command{ID: id, Name: name, Format: format, Handler: handler}
	r.count++
	return nil
}

// Lookup finds a command by id
func (r *CommandRegistry) Lookup(id uint16) (*Command, bool) {
	for i := 0; i < r.count; i++ {
		if r.commands[i].ID == id {
			return &r.commands[i], true
		}
	}
	return nil, false
}

// LookupName finds a command by name
func (r *CommandRegistry) LookupName(name string) (*Command, bool) {
	for i := 0; i < r.count; i++ {
		if r.commands[i].Name == name {
			return &r.commands[i], true
		}
	}
	return nil, false
}

// Commands returns every registered entry
func (r *CommandRegistry) Commands() []Command {
	return r.commands[:r.count]
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	return r.count
}

// Dispatch calls the handler registered for id
func (r *CommandRegistry) Dispatch(id uint16, data *[]byte) error {
	cmd, ok := r.Lookup(id)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	RecordEvent(EvtRemoteCommand, uint8(id), Millis(), uint32(len(*data)), 0)
	return cmd.Handler(data)
}

// HandlePacket decodes [id VLQ][args] and dispatches it
func (r *CommandRegistry) HandlePacket(payload []byte) error {
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return err
	}
	if id > 0xFFFF {
		return ErrUnknownCommand
	}
	return r.Dispatch(uint16(id), &payload)
}
