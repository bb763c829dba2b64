// Package telemetry exposes the line driver's runtime state and controls
// over the wire protocol implemented by package protocol: a command
// dictionary a host tool fetches once on connect, and a small set of
// get/set commands mapped onto driver.Driver.
package telemetry

import (
	"errors"
	"sort"
	"sync"
)

// Handler decodes a command's arguments from data and acts on them.
type Handler func(data *[]byte) error

// Command is one entry in the dictionary: a name, a doc format string
// describing its argument layout, and, for host->device commands, a
// handler. Responses (device->host) carry a nil handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string
	Handler Handler
}

// Registry holds the set of commands and responses known to a transport,
// in Klipper's dictionary sense: IDs are assigned in registration order
// and never reused.
type Registry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command with a handler (host -> device direction).
// Re-registering the same name returns its existing ID.
func (r *Registry) Register(name, format string, handler Handler) uint16 {
	return r.register(name, format, handler)
}

// RegisterResponse adds a response (device -> host direction, no handler).
func (r *Registry) RegisterResponse(name, format string) uint16 {
	return r.register(name, format, nil)
}

func (r *Registry) register(name, format string, handler Handler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.nameToID[name]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
	r.nameToID[name] = id
	return id
}

// Lookup returns a command by name, mainly useful for tests and for a
// host-side encoder that needs the wire ID for a given command name.
func (r *Registry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Dispatch looks up cmdID and calls its handler with data.
func (r *Registry) Dispatch(cmdID uint16, data *[]byte) error {
	r.mu.RLock()
	cmd, ok := r.commands[cmdID]
	r.mu.RUnlock()
	if !ok {
		return errors.New("telemetry: unknown command id")
	}
	if cmd.Handler == nil {
		return errors.New("telemetry: command id has no handler")
	}
	return cmd.Handler(data)
}

// entries returns every registered command/response sorted by ID, for
// dictionary generation.
func (r *Registry) entries() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
