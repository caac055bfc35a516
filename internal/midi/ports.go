package midi

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// ErrPortNotFound is returned when no MIDI port has the requested name.
var ErrPortNotFound = errors.New("midi port not found")

// Manager handles MIDI port discovery
type Manager struct {
	mu sync.RWMutex
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	midi.CloseDriver()
}

// ListInPorts returns the names of available MIDI input ports
func (m *Manager) ListInPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// InPort returns an input port by name
func (m *Manager) InPort(name string) (drivers.In, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, in := range midi.GetInPorts() {
		if in.String() == name {
			return in, nil
		}
	}
	return nil, fmt.Errorf("%w: input %q", ErrPortNotFound, name)
}

// OutPort returns an output port by name
func (m *Manager) OutPort(name string) (drivers.Out, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, out := range midi.GetOutPorts() {
		if out.String() == name {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: output %q", ErrPortNotFound, name)
}

// Listen delivers every message arriving on the named input to fn until
// the returned stop function is called.
func (m *Manager) Listen(inPortName string, fn func(msg midi.Message)) (func(), error) {
	in, err := m.InPort(inPortName)
	if err != nil {
		return nil, err
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		fn(msg)
	}, midi.UseSysEx())
	if err != nil {
		return nil, fmt.Errorf("failed to start listening on %s: %w", inPortName, err)
	}
	return stop, nil
}

// OpenOutput opens the named output port for sending.
func (m *Manager) OpenOutput(name string) (*Output, error) {
	out, err := m.OutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender for %s: %w", name, err)
	}
	return NewOutput(name, send), nil
}
