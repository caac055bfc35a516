package main

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/PixPMusic/livedeck/internal/app"
	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/launcher"
	"github.com/PixPMusic/livedeck/internal/midi"
	"github.com/PixPMusic/livedeck/internal/playback"
	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultKeySize = 90

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...)
}

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "List the song catalog with the page and key each song lands on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		songs, err := catalog.Load(cfg.SongsPath)
		if err != nil {
			return err
		}

		perPage := max(cfg.Layout.SongsPerPage, 1)
		t := newTable("#", "Page", "Key", "Title", "Artist", "Track", "Clip", "Cue")
		for i, s := range songs.All() {
			cue := "-"
			if s.Key != "" {
				if note, err := playback.CueNote(s.Key); err == nil {
					cue = fmt.Sprintf("%s (%d)", s.Key, note)
				} else {
					cue = s.Key + " (unmapped)"
				}
			}
			t.Row(
				strconv.Itoa(i+1),
				strconv.Itoa(i/perPage+1),
				strconv.Itoa(i%perPage),
				s.Title,
				s.Artist,
				s.Track.String(),
				strconv.Itoa(s.ClipSlot()),
				cue,
			)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		fmt.Fprintf(cmd.OutOrStdout(), "%d songs from %s\n", songs.Len(), cfg.SongsPath)
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports and surface drivers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m := midi.NewManager()
		defer m.Close()

		t := newTable("Direction", "Port")
		for _, name := range m.ListInPorts() {
			t.Row("in", name)
		}
		for _, name := range m.ListOutPorts() {
			t.Row("out", name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		fmt.Fprintf(cmd.OutOrStdout(), "Surface drivers: %v\n", surface.Drivers())
		return nil
	},
}

var relayFlags struct {
	route     string
	low, high uint8
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Forward MIDI notes between ports without a surface",
	RunE: func(cmd *cobra.Command, _ []string) error {
		routes := cfg.EnabledRelays()
		if relayFlags.route != "" {
			r := cfg.GetRelay(relayFlags.route)
			if r == nil {
				return fmt.Errorf("no relay route %q", relayFlags.route)
			}
			routes = append(routes[:0], *r)
		}
		if len(routes) == 0 {
			return errors.New("no relay routes configured")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		for _, route := range routes {
			if cmd.Flags().Changed("low") {
				route.Low = relayFlags.low
			}
			if cmd.Flags().Changed("high") {
				route.High = relayFlags.high
			}
			relay, err := a.NewRelay(route)
			if err != nil {
				return fmt.Errorf("route %q: %w", route.Name, err)
			}
			g.Go(func() error { return relay.Run(ctx, a.MIDI()) })
		}
		return g.Wait()
	},
}

var prerenderSize int

var prerenderCmd = &cobra.Command{
	Use:   "prerender",
	Short: "Check every song's artwork and render its key image",
	RunE: func(cmd *cobra.Command, _ []string) error {
		size := image.Pt(prerenderSize, prerenderSize)
		if prerenderSize <= 0 {
			size = keySize()
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		reports, err := app.CheckArtwork(ctx, cfg, size, log)
		if err != nil {
			return err
		}

		failed := 0
		t := newTable("Title", "Image", "Artwork")
		for _, r := range reports {
			status := "ok"
			if r.Err != nil {
				status = r.Err.Error()
				failed++
			}
			t.Row(r.Song.Title, r.Song.Image, status)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		if failed > 0 {
			return fmt.Errorf("%d of %d songs will show a placeholder", failed, len(reports))
		}
		return nil
	},
}

// keySize asks the configured surface for its key size without opening it.
func keySize() image.Point {
	dev, err := surface.First(cfg.Surface.Driver)
	if err != nil {
		log.Debug("Using default key size", zap.Error(err))
		return image.Pt(defaultKeySize, defaultKeySize)
	}
	w, h := dev.KeyImageFormat()
	return image.Pt(w, h)
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting livedeck at login",
}

func init() {
	relayCmd.Flags().StringVar(&relayFlags.route, "route", "", "Run only this route (ID or name)")
	relayCmd.Flags().Uint8Var(&relayFlags.low, "low", midi.DefaultListenLow, "Lowest note forwarded")
	relayCmd.Flags().Uint8Var(&relayFlags.high, "high", midi.DefaultListenHigh, "Highest note forwarded")

	prerenderCmd.Flags().IntVar(&prerenderSize, "size", 0, "Key size in pixels (default: the surface's)")

	autostartCmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start livedeck at login",
			RunE:  func(*cobra.Command, []string) error { return setOpenAtLogin(true) },
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Do not start livedeck at login",
			RunE:  func(*cobra.Command, []string) error { return setOpenAtLogin(false) },
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether livedeck starts at login",
			Run: func(cmd *cobra.Command, _ []string) {
				state := "disabled"
				if launcher.AutostartEnabled() {
					state = "enabled"
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Open at login:", state)
			},
		},
	)
}

func setOpenAtLogin(enabled bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.SetOpenAtLogin(enabled)
}
