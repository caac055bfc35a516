package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/logging"
	"go.uber.org/zap"
)

// StopSummary reports what StopAll managed to do.
type StopSummary struct {
	Connected bool
	Tracks    int
	Stopped   int
	Skipped   int
	Failed    int
}

// Coordinator turns song selections and stop requests into Transport calls.
type Coordinator struct {
	transport Transport
	cue       Cuer
	log       *zap.Logger

	// Serialises connects; Transport calls themselves are not guarded.
	connMu sync.Mutex
}

// NewCoordinator creates a coordinator. cue may be nil to disable key cues.
func NewCoordinator(transport Transport, cue Cuer, log *zap.Logger) *Coordinator {
	return &Coordinator{
		transport: transport,
		cue:       cue,
		log:       logging.OrNop(log),
	}
}

// Connect connects the transport if it is not connected yet.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.transport.Connected() {
		return nil
	}
	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportConnection, err)
	}
	c.log.Info("Transport connected")
	return nil
}

// Play resets the playhead, solos the song's track, fires its clip and,
// if the song has a key, emits the key cue.
//
// A missing track aborts before any solo change. A missing clip is
// reported as ErrNoClip after the solo and cue have been applied.
func (c *Coordinator) Play(ctx context.Context, song catalog.Song) error {
	log := c.log.With(zap.String("title", song.Title), zap.Stringer("track", song.Track))

	if err := c.Connect(ctx); err != nil {
		return err
	}

	if err := c.transport.ResetPlayhead(ctx); err != nil {
		log.Warn("Playhead reset failed", zap.Error(err))
	}

	tracks, err := c.transport.ListTracks(ctx)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	target, err := findTrack(tracks, song.Track)
	if err != nil {
		return err
	}

	for _, t := range tracks {
		if t.Index == target.Index {
			continue
		}
		if err := c.transport.SetSolo(ctx, t.Index, false); err != nil {
			log.Warn("Unsolo failed", zap.Int("other", t.Index), zap.Error(err))
		}
	}
	if err := c.transport.SetSolo(ctx, target.Index, true); err != nil {
		return fmt.Errorf("solo track %d: %w", target.Index, err)
	}

	var clipErr error
	slot := song.ClipSlot()
	if target.Clip(slot) {
		if err := c.transport.PlayClip(ctx, target.Index, slot); err != nil {
			return fmt.Errorf("play clip %d on track %d: %w", slot, target.Index, err)
		}
		log.Info("Playing", zap.String("track_name", target.Name), zap.Int("clip", slot))
	} else {
		clipErr = fmt.Errorf("%w: track %q slot %d", ErrNoClip, target.Name, slot)
	}

	c.emitCue(ctx, log, song.Key)
	return clipErr
}

func (c *Coordinator) emitCue(ctx context.Context, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if c.cue == nil {
		log.Debug("No cue output configured", zap.String("key", key))
		return
	}
	note, err := CueNote(key)
	if err != nil {
		log.Warn("Cue skipped", zap.Error(err))
		return
	}
	if err := c.cue.Cue(ctx, note); err != nil {
		log.Warn("Cue failed", zap.String("key", key), zap.Uint8("note", note), zap.Error(err))
	}
}

// StopAll sends the transport stop signal and then stops every clip of
// every track. It never fails: each problem is logged and the remaining
// tracks are still stopped.
func (c *Coordinator) StopAll(ctx context.Context) StopSummary {
	var sum StopSummary

	if err := c.Connect(ctx); err != nil {
		c.log.Error("Stop all skipped", zap.Error(err))
		return sum
	}
	sum.Connected = true

	if err := c.transport.StopAllSignal(ctx); err != nil {
		c.log.Warn("Stop signal failed", zap.Error(err))
	}

	tracks, err := c.transport.ListTracks(ctx)
	if err != nil {
		c.log.Error("Stop all could not list tracks", zap.Error(err))
		return sum
	}
	sum.Tracks = len(tracks)

	for _, t := range tracks {
		skipped := 0
		for slot, clip := range t.Clips {
			if !clip.HasClip {
				skipped++
				continue
			}
			if err := c.transport.StopClip(ctx, t.Index, slot); err != nil {
				sum.Failed++
				c.log.Warn("Clip stop failed",
					zap.String("track_name", t.Name),
					zap.Int("clip", slot),
					zap.Error(err))
				continue
			}
			sum.Stopped++
		}
		if skipped > 0 && skipped < len(t.Clips) {
			c.log.Debug("Empty clip slots skipped", zap.String("track_name", t.Name), zap.Int("skipped", skipped))
		}
		sum.Skipped += skipped
	}

	c.log.Info("All playback stopped",
		zap.Int("tracks", sum.Tracks),
		zap.Int("stopped", sum.Stopped),
		zap.Int("failed", sum.Failed))
	return sum
}

func findTrack(tracks []Track, ref catalog.TrackRef) (Track, error) {
	if !ref.IsSet() {
		return Track{}, fmt.Errorf("%w: song has no track", ErrTrackNotFound)
	}
	if ref.ByName() {
		for _, t := range tracks {
			if t.Name == ref.Name {
				return t, nil
			}
		}
		for _, t := range tracks {
			if strings.EqualFold(t.Name, ref.Name) {
				return t, nil
			}
		}
		return Track{}, fmt.Errorf("%w: %q", ErrTrackNotFound, ref.Name)
	}
	for _, t := range tracks {
		if t.Index == ref.Index {
			return t, nil
		}
	}
	return Track{}, fmt.Errorf("%w: index %d of %d", ErrTrackNotFound, ref.Index, len(tracks))
}
