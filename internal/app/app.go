// Package app wires the catalog, control surface, renderer, transport
// and MIDI plumbing into a running livedeck.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/config"
	"github.com/PixPMusic/livedeck/internal/controller"
	"github.com/PixPMusic/livedeck/internal/launcher"
	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/PixPMusic/livedeck/internal/midi"
	"github.com/PixPMusic/livedeck/internal/playback"
	"github.com/PixPMusic/livedeck/internal/render"
	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/PixPMusic/livedeck/internal/surface/launchpad"
	"github.com/PixPMusic/livedeck/internal/transport/ableton"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	// Surface drivers register themselves.
	_ "github.com/PixPMusic/livedeck/internal/surface/loupedeck"
	_ "github.com/PixPMusic/livedeck/internal/surface/streamdeck"
	_ "github.com/PixPMusic/livedeck/internal/surface/virtual"
)

// Exit codes for failures the operator can fix.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitNoSurface        = 2
	ExitCatalogMissing   = 3
	ExitCatalogMalformed = 4
	ExitTransport        = 5
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, catalog.ErrMissing):
		return ExitCatalogMissing
	case errors.Is(err, catalog.ErrMalformed):
		return ExitCatalogMalformed
	case errors.Is(err, surface.ErrDeviceNotFound):
		return ExitNoSurface
	case errors.Is(err, playback.ErrTransportConnection):
		return ExitTransport
	default:
		return ExitFailure
	}
}

// App holds the long-lived pieces shared by the commands.
type App struct {
	cfg     *config.Config
	cfgPath string
	log     *zap.Logger

	midi        *midi.Manager
	transport   *ableton.Transport
	coordinator *playback.Coordinator
}

// New creates the MIDI manager, the DAW transport and the playback
// coordinator. Nothing connects until Run or the first play.
func New(cfg *config.Config, cfgPath string, log *zap.Logger) (*App, error) {
	log = logging.OrNop(log)
	a := &App{cfg: cfg, cfgPath: cfgPath, log: log, midi: midi.NewManager()}

	transport, err := ableton.New(TransportConfig(cfg.Transport), log)
	if err != nil {
		a.midi.Close()
		return nil, err
	}
	a.transport = transport
	a.coordinator = playback.NewCoordinator(transport, a.openCue(), log)
	return a, nil
}

// TransportConfig converts the config section to the transport's settings.
func TransportConfig(c config.TransportConfig) ableton.Config {
	return ableton.Config{
		Host:       c.Host,
		SendPort:   c.SendPort,
		ListenPort: c.ListenPort,
		ResetHost:  c.ResetHost,
		ResetPort:  c.ResetPort,
		Timeout:    c.Timeout.Std(),
	}
}

// openCue opens the cue output. Without one, songs play without a cue.
func (a *App) openCue() playback.Cuer {
	if !a.cfg.Cue.Enabled {
		return nil
	}
	out, err := a.midi.OpenOutput(a.cfg.Cue.Port)
	if err != nil {
		a.log.Warn("Key cue disabled", zap.String("port", a.cfg.Cue.Port), zap.Error(err))
		return nil
	}
	return midi.NewCueSender(out, a.cfg.Cue.Channel, a.cfg.Cue.Velocity, a.cfg.Cue.Duration.Std())
}

// MIDI returns the port manager.
func (a *App) MIDI() *midi.Manager {
	return a.midi
}

// StopAll stops playback. It is used by the tray menu.
func (a *App) StopAll(ctx context.Context) playback.StopSummary {
	return a.coordinator.StopAll(ctx)
}

// SetOpenAtLogin registers or removes the login item and saves the choice.
func (a *App) SetOpenAtLogin(enabled bool) error {
	var err error
	if enabled {
		args := []string{"run"}
		if a.cfgPath != "" {
			args = append(args, "--config", a.cfgPath)
		}
		err = launcher.EnableAutostart(args...)
	} else {
		err = launcher.DisableAutostart()
	}
	if err != nil {
		return fmt.Errorf("open at login: %w", err)
	}
	a.cfg.OpenAtLogin = enabled
	return a.cfg.Save(a.cfgPath)
}

// Close releases the transport and the MIDI driver.
func (a *App) Close() {
	if err := a.transport.Close(); err != nil {
		a.log.Debug("Transport close", zap.Error(err))
	}
	a.midi.Close()
}

// Run loads the catalog, connects to Ableton, opens the surface and serves
// key presses until ctx is done or the surface goes away. The surface is
// blanked on exit.
func (a *App) Run(ctx context.Context) error {
	songs, err := catalog.Load(a.cfg.SongsPath)
	if err != nil {
		return err
	}
	a.log.Info("Catalog loaded", zap.String("path", a.cfg.SongsPath), zap.Int("songs", songs.Len()))

	a.startCompanions(ctx)

	// Later plays reconnect lazily; the first connect must succeed.
	if err := a.coordinator.Connect(ctx); err != nil {
		return err
	}

	renderer, err := render.NewRenderer(render.Options{
		AssetsDir: a.cfg.AssetsDir,
		FontPath:  a.cfg.Font,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}

	dev, err := a.openSurface()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Reset(); err != nil {
			a.log.Debug("Surface reset", zap.Error(err))
		}
		if err := dev.Close(); err != nil {
			a.log.Warn("Surface close", zap.Error(err))
		}
	}()

	if err := dev.SetBrightness(a.cfg.Surface.Brightness); err != nil {
		a.log.Warn("Brightness not set", zap.Error(err))
	}

	ctrl, err := controller.New(dev, songs, a.coordinator, renderer, render.NewCache(), controller.Options{
		Layout:   Layout(a.cfg.Layout),
		StopIcon: a.cfg.StopIcon,
		Logger:   a.log,
	})
	if err != nil {
		return err
	}
	if err := ctrl.Prerender(ctx); err != nil {
		return err
	}
	ctrl.Attach(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctrl.RunStatus(ctx, a.cfg.StatusInterval.Std())
		return nil
	})
	for _, route := range a.cfg.EnabledRelays() {
		relay, err := a.NewRelay(route)
		if err != nil {
			a.log.Warn("Relay disabled", zap.String("route", route.Name), zap.Error(err))
			continue
		}
		g.Go(func() error {
			// Relay failures are logged; the surface keeps running.
			if err := relay.Run(ctx, a.midi); err != nil {
				a.log.Warn("Relay stopped", zap.String("route", route.Name), zap.Error(err))
			}
			return nil
		})
	}
	if done, ok := dev.(interface{ Done() <-chan struct{} }); ok {
		g.Go(func() error {
			select {
			case <-done.Done():
				return errSurfaceClosed
			case <-ctx.Done():
				return nil
			}
		})
	}

	a.log.Info("livedeck running", zap.String("surface", dev.ID()))
	if err := g.Wait(); err != nil && !errors.Is(err, errSurfaceClosed) {
		return err
	}
	a.log.Info("Shutting down")
	return nil
}

var errSurfaceClosed = errors.New("surface closed")

// Layout converts the config section to a controller layout.
func Layout(c config.LayoutConfig) controller.Layout {
	return controller.Layout{
		SongsPerPage: c.SongsPerPage,
		Stop:         c.Stop,
		NavBack:      c.NavBack,
		NavForward:   c.NavForward,
	}
}

// NewRelay creates the relay for a configured route.
func (a *App) NewRelay(route config.RelayRoute) (*midi.Relay, error) {
	out, err := a.midi.OpenOutput(route.Output)
	if err != nil {
		return nil, err
	}
	relay := midi.NewRelay(route.Inputs, out, a.log.With(zap.String("route", route.Name)))
	if err := relay.SetListenRange(route.Low, route.High); err != nil {
		return nil, err
	}
	return relay, nil
}

func (a *App) startCompanions(ctx context.Context) {
	l := launcher.New(a.log)
	for _, c := range a.cfg.Companions {
		companion := launcher.App{Name: c.Name, Path: c.Path, Process: c.Process, Timeout: c.Timeout.Std()}
		if err := l.EnsureRunning(ctx, companion); err != nil {
			a.log.Warn("Companion app not started", zap.String("app", c.Name), zap.Error(err))
		}
	}
}

// openSurface finds and opens the configured surface. Launchpad ports
// given in the config bypass detection.
func (a *App) openSurface() (surface.Device, error) {
	driver := strings.ToLower(a.cfg.Surface.Driver)

	var dev surface.Device
	lp := a.cfg.Surface.Launchpad
	if driver == launchpad.DriverName && lp.OutPort != "" {
		in := lp.InPort
		if in == "" {
			in = lp.OutPort
		}
		d, err := launchpad.New(a.midi, in, lp.OutPort, midi.Model(lp.Model), a.log)
		if err != nil {
			return nil, err
		}
		dev = d
	} else {
		d, err := surface.First(driver)
		if err != nil {
			return nil, err
		}
		dev = d
	}

	if err := dev.Open(); err != nil {
		return nil, fmt.Errorf("open %s: %w", dev.ID(), err)
	}
	a.log.Info("Surface opened", zap.String("id", dev.ID()), zap.Int("keys", dev.KeyCount()))
	return dev, nil
}

// ArtworkReport is the outcome of checking one song's artwork.
type ArtworkReport struct {
	Song catalog.Song
	Err  error
}

// CheckArtwork loads every song's artwork and renders the key images for
// size, so missing files show up before a show rather than during it.
func CheckArtwork(ctx context.Context, cfg *config.Config, size image.Point, log *zap.Logger) ([]ArtworkReport, error) {
	songs, err := catalog.Load(cfg.SongsPath)
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewRenderer(render.Options{AssetsDir: cfg.AssetsDir, FontPath: cfg.Font, Logger: log})
	if err != nil {
		return nil, err
	}

	loader := render.ArtworkLoader{BaseDir: cfg.AssetsDir}
	reports := make([]ArtworkReport, 0, songs.Len())
	for _, song := range songs.All() {
		r := ArtworkReport{Song: song}
		if song.Image == "" {
			r.Err = errors.New("no image")
		} else if _, err := loader.Load(ctx, song.Image); err != nil {
			r.Err = err
		}
		reports = append(reports, r)
	}

	start := time.Now()
	if err := render.NewCache().PrerenderAll(ctx, songs.All(), size, renderer.RenderSong); err != nil {
		return reports, err
	}
	logging.OrNop(log).Info("Prerendered", zap.Int("songs", songs.Len()), zap.Duration("took", time.Since(start)))
	return reports, nil
}
