package midi

import (
	"context"
	"fmt"
	"sync"

	"github.com/PixPMusic/livedeck/internal/logging"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// Default listen range, A0 to C8.
const (
	DefaultListenLow  uint8 = 21
	DefaultListenHigh uint8 = 108
)

// Relay forwards messages from one or more inputs to an output. Notes
// outside the listen range are dropped; everything else passes through.
type Relay struct {
	inputs []string
	out    *Output
	log    *zap.Logger

	mu        sync.RWMutex
	low, high uint8
}

// NewRelay creates a relay with the default listen range.
func NewRelay(inputs []string, out *Output, log *zap.Logger) *Relay {
	return &Relay{
		inputs: inputs,
		out:    out,
		log:    logging.OrNop(log),
		low:    DefaultListenLow,
		high:   DefaultListenHigh,
	}
}

// SetListenRange sets the inclusive note range that is forwarded.
// It is safe to call while the relay runs.
func (r *Relay) SetListenRange(low, high uint8) error {
	if low > high || high > 127 {
		return fmt.Errorf("invalid listen range %d-%d", low, high)
	}
	r.mu.Lock()
	r.low, r.high = low, high
	r.mu.Unlock()
	r.log.Info("Updated listen range", zap.Uint8("low", low), zap.Uint8("high", high))
	return nil
}

// ListenRange returns the current inclusive note range.
func (r *Relay) ListenRange() (low, high uint8) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.low, r.high
}

// accept reports whether msg should be forwarded.
func (r *Relay) accept(msg midi.Message) bool {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity), msg.GetNoteOff(&channel, &key, &velocity):
		low, high := r.ListenRange()
		return key >= low && key <= high
	default:
		return true
	}
}

// Handle forwards msg if it passes the filter.
func (r *Relay) Handle(msg midi.Message) {
	if !r.accept(msg) {
		r.log.Debug("Ignored", zap.Stringer("msg", msg))
		return
	}
	if err := r.out.Send(msg); err != nil {
		r.log.Warn("Forward failed", zap.Stringer("msg", msg), zap.Error(err))
		return
	}
	r.log.Debug("Forwarding", zap.Stringer("msg", msg))
}

// Run listens on every input until ctx is done. An input that cannot be
// opened aborts the run.
func (r *Relay) Run(ctx context.Context, m *Manager) error {
	var stops []func()
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	for _, name := range r.inputs {
		stop, err := m.Listen(name, r.Handle)
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		stops = append(stops, stop)
	}

	low, high := r.ListenRange()
	r.log.Info("Relay listening",
		zap.Strings("inputs", r.inputs),
		zap.String("output", r.out.Name()),
		zap.Uint8("low", low),
		zap.Uint8("high", high))

	<-ctx.Done()
	r.log.Info("Relay stopped")
	return nil
}
