package midi

import (
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

// SendFunc writes one message to a port.
type SendFunc func(msg midi.Message) error

// Output is a MIDI output shared by several writers. Single messages are
// serialised; Hold gives one caller the port for a sequence of messages.
type Output struct {
	name string

	mu   sync.Mutex
	send SendFunc
}

// NewOutput wraps send as a shared output called name.
func NewOutput(name string, send SendFunc) *Output {
	return &Output{name: name, send: send}
}

// Name returns the port name.
func (o *Output) Name() string {
	return o.name
}

// Send writes one message.
func (o *Output) Send(msg midi.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(msg)
}

// Hold runs fn with exclusive use of the port. No other Send or Hold
// interleaves with the messages fn sends.
func (o *Output) Hold(fn func(send SendFunc) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn(o.send)
}
