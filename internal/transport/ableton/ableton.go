// Package ableton controls Ableton Live through AbletonOSC, plus a
// Max-for-Live device that rewinds the playhead on "/reset".
package ableton

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/PixPMusic/livedeck/internal/playback"
	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"
)

const (
	addrTest       = "/live/test"
	addrNumTracks  = "/live/song/get/num_tracks"
	addrTrackName  = "/live/track/get/name"
	addrTrackSolo  = "/live/track/get/solo"
	addrClipNames  = "/live/track/get/clips/name"
	addrSetSolo    = "/live/track/set/solo"
	addrFireClip   = "/live/clip/fire"
	addrStopClip   = "/live/clip/stop"
	addrStopAll    = "/live/song/stop_all_clips"
	addrResetHead  = "/reset"
	defaultTimeout = 2 * time.Second
)

// replyAddresses are the queries AbletonOSC answers on the listen port.
var replyAddresses = []string{addrTest, addrNumTracks, addrTrackName, addrTrackSolo, addrClipNames}

// ErrTimeout is returned when AbletonOSC does not answer a query in time.
var ErrTimeout = errors.New("no reply from Ableton")

// Config addresses AbletonOSC and the reset device.
type Config struct {
	Host       string
	SendPort   int
	ListenPort int
	ResetHost  string
	ResetPort  int
	Timeout    time.Duration
}

// DefaultConfig matches AbletonOSC's stock ports.
func DefaultConfig() Config {
	return Config{
		Host:       "127.0.0.1",
		SendPort:   11000,
		ListenPort: 11001,
		ResetHost:  "127.0.0.1",
		ResetPort:  8000,
		Timeout:    defaultTimeout,
	}
}

// sender is satisfied by *osc.Client.
type sender interface {
	Send(packet osc.Packet) error
}

type waiter struct {
	address string
	match   func(args []interface{}) bool
	ch      chan []interface{}
}

// Transport implements playback.Transport over OSC.
type Transport struct {
	cfg        Config
	log        *zap.Logger
	live       sender
	reset      sender
	dispatcher *osc.StandardDispatcher

	mu        sync.Mutex
	conn      net.PacketConn
	connected bool
	waiters   []*waiter
}

var _ playback.Transport = (*Transport)(nil)

// New creates a transport. Nothing is sent until Connect.
func New(cfg Config, log *zap.Logger) (*Transport, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	t := &Transport{
		cfg:        cfg,
		log:        logging.OrNop(log).Named("ableton"),
		live:       osc.NewClient(cfg.Host, cfg.SendPort),
		reset:      osc.NewClient(cfg.ResetHost, cfg.ResetPort),
		dispatcher: osc.NewStandardDispatcher(),
	}
	for _, addr := range replyAddresses {
		if err := t.dispatcher.AddMsgHandler(addr, t.receive); err != nil {
			return nil, fmt.Errorf("register %s: %w", addr, err)
		}
	}
	return t, nil
}

// Connect starts listening for replies and checks that AbletonOSC answers.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn == nil {
		conn, err := net.ListenPacket("udp", net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.ListenPort)))
		if err != nil {
			t.mu.Unlock()
			return fmt.Errorf("listen for replies: %w", err)
		}
		t.conn = conn
		server := &osc.Server{Dispatcher: t.dispatcher}
		go func() {
			if err := server.Serve(conn); err != nil && !errors.Is(err, net.ErrClosed) {
				t.log.Debug("Reply server stopped", zap.Error(err))
			}
		}()
	}
	t.mu.Unlock()

	if _, err := t.query(ctx, addrTest, nil); err != nil {
		return err
	}

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// ResetPlayhead asks the reset device to rewind.
func (t *Transport) ResetPlayhead(_ context.Context) error {
	msg := osc.NewMessage(addrResetHead)
	msg.Append(int32(0))
	if err := t.reset.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", addrResetHead, err)
	}
	return nil
}

func (t *Transport) StopAllSignal(_ context.Context) error {
	return t.send(addrStopAll)
}

// ListTracks queries every track's name, solo state and clip slots.
func (t *Transport) ListTracks(ctx context.Context) ([]playback.Track, error) {
	args, err := t.query(ctx, addrNumTracks, nil)
	if err != nil {
		return nil, err
	}
	n, ok := intArg(args, 0)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected reply %v", addrNumTracks, args)
	}

	tracks := make([]playback.Track, 0, n)
	for i := 0; i < n; i++ {
		track := playback.Track{Index: i}
		forTrack := trackMatcher(i)

		args, err := t.query(ctx, addrTrackName, forTrack, int32(i))
		if err != nil {
			return nil, err
		}
		track.Name, _ = stringArg(args, 1)

		args, err = t.query(ctx, addrTrackSolo, forTrack, int32(i))
		if err != nil {
			return nil, err
		}
		track.Soloed = boolArg(args, 1)

		args, err = t.query(ctx, addrClipNames, forTrack, int32(i))
		if err != nil {
			return nil, err
		}
		track.Clips = clipSlots(args[1:])

		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (t *Transport) SetSolo(_ context.Context, track int, solo bool) error {
	v := int32(0)
	if solo {
		v = 1
	}
	return t.send(addrSetSolo, int32(track), v)
}

func (t *Transport) PlayClip(_ context.Context, track, clip int) error {
	return t.send(addrFireClip, int32(track), int32(clip))
}

func (t *Transport) StopClip(_ context.Context, track, clip int) error {
	return t.send(addrStopClip, int32(track), int32(clip))
}

// Close stops the reply listener. Pending queries time out.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *Transport) send(address string, args ...interface{}) error {
	msg := osc.NewMessage(address)
	msg.Append(args...)
	if err := t.live.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", address, err)
	}
	t.log.Debug("Sent", zap.String("address", address), zap.Any("args", args))
	return nil
}

// query sends a request and waits for the first reply on the same address
// that match accepts. A nil match accepts any reply.
func (t *Transport) query(ctx context.Context, address string, match func([]interface{}) bool, args ...interface{}) ([]interface{}, error) {
	w := &waiter{address: address, match: match, ch: make(chan []interface{}, 1)}
	t.mu.Lock()
	t.waiters = append(t.waiters, w)
	t.mu.Unlock()
	defer t.forget(w)

	if err := t.send(address, args...); err != nil {
		return nil, err
	}

	timer := time.NewTimer(t.cfg.Timeout)
	defer timer.Stop()

	select {
	case reply := <-w.ch:
		return reply, nil
	case <-timer.C:
		// Ableton stopped answering. The next Connect checks again.
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		t.log.Warn("Ableton did not reply", zap.String("address", address))
		return nil, fmt.Errorf("%s: %w", address, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) forget(w *waiter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, other := range t.waiters {
		if other == w {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}

// receive hands a reply to the oldest matching waiter.
func (t *Transport) receive(msg *osc.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range t.waiters {
		if w.address != msg.Address || (w.match != nil && !w.match(msg.Arguments)) {
			continue
		}
		t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
		w.ch <- msg.Arguments
		return
	}
	t.log.Debug("Unsolicited reply", zap.String("address", msg.Address))
}

func trackMatcher(track int) func([]interface{}) bool {
	return func(args []interface{}) bool {
		i, ok := intArg(args, 0)
		return ok && i == track
	}
}

// clipSlots converts a clip name list. AbletonOSC reports empty slots as nil.
func clipSlots(names []interface{}) []playback.ClipSlot {
	slots := make([]playback.ClipSlot, len(names))
	for i, name := range names {
		if s, ok := name.(string); ok {
			slots[i] = playback.ClipSlot{HasClip: true, Name: s}
		}
	}
	return slots
}

func intArg(args []interface{}, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringArg(args []interface{}, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func boolArg(args []interface{}, i int) bool {
	if i >= len(args) {
		return false
	}
	if b, ok := args[i].(bool); ok {
		return b
	}
	n, ok := intArg(args, i)
	return ok && n != 0
}
