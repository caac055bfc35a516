package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/PixPMusic/livedeck/internal/app"
	"github.com/PixPMusic/livedeck/internal/config"
	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/PixPMusic/livedeck/internal/tray"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flags struct {
		configPath string
		logLevel   string
		dev        bool
		tray       bool
		surface    string
	}

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "livedeck",
	Short: "Song launcher for Ableton Live on a control surface",
	Long: `livedeck shows a song catalog as album art on a control surface and
plays the chosen song's clip in Ableton Live.

Pressing a song key stops everything, rewinds, solos the song's track,
fires its clip and sends the song's key as a MIDI cue.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runLivedeck,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run livedeck on the configured surface (default)",
	RunE:  runLivedeck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&flags.dev, "dev", false,
		"Human-readable development logging")

	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&flags.tray, "tray", false, "Show a system tray menu")
		c.Flags().StringVar(&flags.surface, "surface", "", "Surface driver, overrides the config")
	}

	rootCmd.AddCommand(runCmd, songsCmd, portsCmd, relayCmd, prerenderCmd, autostartCmd)
}

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "livedeck:", err)
		os.Exit(app.ExitCode(err))
	}
}

// setup loads the configuration and builds the logger for every command.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.dev {
		cfg.Log.Development = true
	}
	if flags.surface != "" {
		cfg.Surface.Driver = flags.surface
	}

	log, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	return err
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newApp() (*app.App, error) {
	return app.New(cfg, flags.configPath, log)
}

func runLivedeck(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	if !flags.tray && !cfg.Tray {
		return a.Run(ctx)
	}
	return runWithTray(ctx, a)
}

// runWithTray runs livedeck in the background while fyne owns the main
// goroutine for the tray.
func runWithTray(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fyneApp := fyneapp.NewWithID("com.pixpmusic.livedeck")

	errc := make(chan error, 1)
	go func() {
		errc <- a.Run(ctx)
		fyne.Do(fyneApp.Quit)
	}()

	ok := tray.Setup(fyneApp, cfg.OpenAtLogin, tray.Callbacks{
		OnStopAll: func() {
			summary := a.StopAll(ctx)
			log.Info("Stopped from tray", zap.Int("stopped", summary.Stopped))
		},
		OnQuit: cancel,
		SetOpenAtLogin: func(enabled bool) error {
			if err := a.SetOpenAtLogin(enabled); err != nil {
				log.Error("Failed to change login item", zap.Error(err))
				return err
			}
			return nil
		},
	})
	if !ok {
		log.Warn("System tray not available")
	}

	// Run the Fyne app (this blocks until app.Quit is called)
	fyneApp.Run()
	cancel()
	return <-errc
}
