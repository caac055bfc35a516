// Package launcher starts companion applications and registers livedeck
// to start at login.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// DefaultTimeout is how long EnsureRunning waits for an app to appear.
const DefaultTimeout = 5 * time.Second

// ErrNotInstalled is returned when an app's path does not exist.
var ErrNotInstalled = errors.New("application not installed")

// App is a companion application.
type App struct {
	Name string
	// Path is the executable, or the .app bundle on macOS.
	Path string
	// Process is matched case-insensitively against running process
	// names. Empty means Name.
	Process string
	Timeout time.Duration
}

func (a App) process() string {
	if a.Process != "" {
		return a.Process
	}
	return a.Name
}

// Launcher starts apps that are not running yet.
type Launcher struct {
	log  *zap.Logger
	poll time.Duration

	running func(ctx context.Context, process string) (bool, error)
	start   func(path string) error
}

// New creates a launcher that inspects and starts real processes.
func New(log *zap.Logger) *Launcher {
	return &Launcher{
		log:     logging.OrNop(log),
		poll:    500 * time.Millisecond,
		running: processRunning,
		start:   startApp,
	}
}

// EnsureRunning starts app unless a matching process exists and waits for
// it to show up. An app that is still missing after the timeout is only
// logged; it may be slow to start.
func (l *Launcher) EnsureRunning(ctx context.Context, app App) error {
	log := l.log.With(zap.String("app", app.Name))

	running, err := l.running(ctx, app.process())
	if err != nil {
		return fmt.Errorf("check %s: %w", app.Name, err)
	}
	if running {
		log.Info("Already running")
		return nil
	}

	if _, err := os.Stat(app.Path); err != nil {
		return fmt.Errorf("%w: %s at %s", ErrNotInstalled, app.Name, app.Path)
	}
	if err := l.start(app.Path); err != nil {
		return fmt.Errorf("launch %s: %w", app.Name, err)
	}

	timeout := app.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Warn("Did not appear in time", zap.Duration("timeout", timeout))
			return nil
		case <-ticker.C:
			if ok, _ := l.running(ctx, app.process()); ok {
				log.Info("Launched")
				return nil
			}
		}
	}
}

// processRunning reports whether any process name contains name.
// Processes that vanish or deny access while being listed are skipped.
func processRunning(ctx context.Context, name string) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if matchProcess(pname, name) {
			return true, nil
		}
	}
	return false, nil
}

func matchProcess(pname, name string) bool {
	return pname != "" && strings.Contains(strings.ToLower(pname), strings.ToLower(name))
}

func startApp(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-a", path)
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", path)
	default:
		cmd = exec.Command(path)
	}
	return startReaped(cmd)
}

// startReaped starts cmd and waits for it in the background so the exited
// child does not linger as a zombie.
func startReaped(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
