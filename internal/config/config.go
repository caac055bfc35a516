package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const appName = "livedeck"

// Duration is a time.Duration stored as a string such as "2s" or "100ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Plain numbers are milliseconds
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("duration must be a string like \"2s\" or milliseconds: %s", data)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// LaunchpadConfig pins the Launchpad ports. Empty ports mean auto-detect.
type LaunchpadConfig struct {
	InPort  string `json:"in_port"`
	OutPort string `json:"out_port"`
	Model   string `json:"model"` // "classic" or "colorful"
}

// SurfaceConfig selects the control surface.
type SurfaceConfig struct {
	Driver     string          `json:"driver"` // streamdeck, loupedeck, launchpad or virtual
	Brightness int             `json:"brightness"`
	Launchpad  LaunchpadConfig `json:"launchpad"`
}

// LayoutConfig assigns surface keys to roles.
type LayoutConfig struct {
	SongsPerPage int `json:"songs_per_page"`
	Stop         int `json:"stop"`
	NavBack      int `json:"nav_back"`
	NavForward   int `json:"nav_forward"`
}

// TransportConfig addresses AbletonOSC and the playhead reset device.
type TransportConfig struct {
	Host       string   `json:"host"`
	SendPort   int      `json:"send_port"`
	ListenPort int      `json:"listen_port"`
	ResetHost  string   `json:"reset_host"`
	ResetPort  int      `json:"reset_port"`
	Timeout    Duration `json:"timeout"`
}

// CueConfig configures the key cue sent when a song starts.
type CueConfig struct {
	Enabled  bool     `json:"enabled"`
	Port     string   `json:"port"`
	Channel  uint8    `json:"channel"` // 0-15
	Velocity uint8    `json:"velocity"`
	Duration Duration `json:"duration"`
}

// RelayRoute forwards notes from one or more MIDI inputs to an output
type RelayRoute struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Inputs  []string `json:"inputs"`
	Output  string   `json:"output"`
	Low     uint8    `json:"low"`  // inclusive
	High    uint8    `json:"high"` // inclusive
}

// NewRelayRoute creates a route with a generated ID and the full piano range.
func NewRelayRoute() RelayRoute {
	return RelayRoute{
		ID:     uuid.New().String(),
		Name:   "New Route",
		Inputs: []string{},
		Low:    21,
		High:   108,
	}
}

// CompanionApp is an application started before livedeck connects.
type CompanionApp struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Process string   `json:"process"` // process name to look for; defaults to Name
	Timeout Duration `json:"timeout"`
}

// Config holds application configuration
type Config struct {
	SongsPath      string          `json:"songs_path"`
	AssetsDir      string          `json:"assets_dir"`
	Font           string          `json:"font"`
	StopIcon       string          `json:"stop_icon"`
	Log            LogConfig       `json:"log"`
	Surface        SurfaceConfig   `json:"surface"`
	Layout         LayoutConfig    `json:"layout"`
	Transport      TransportConfig `json:"transport"`
	Cue            CueConfig       `json:"cue"`
	Relays         []RelayRoute    `json:"relays"`
	Companions     []CompanionApp  `json:"companions"`
	StatusInterval Duration        `json:"status_interval"`
	OpenAtLogin    bool            `json:"open_at_login"`
	Tray           bool            `json:"tray"`
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, appName), nil
}

// DefaultPath returns the full path to the config file
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Default returns the configuration used when no file exists. Songs and
// artwork live next to the config file.
func Default() *Config {
	dir, err := configDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		SongsPath: filepath.Join(dir, "songs.json"),
		AssetsDir: filepath.Join(dir, "artwork"),
		Log:       LogConfig{Level: "info"},
		Surface:   SurfaceConfig{Driver: "streamdeck", Brightness: 80, Launchpad: LaunchpadConfig{Model: "colorful"}},
		Layout:    LayoutConfig{SongsPerPage: 7, Stop: 7, NavBack: 8, NavForward: 9},
		Transport: TransportConfig{
			Host:       "127.0.0.1",
			SendPort:   11000,
			ListenPort: 11001,
			ResetHost:  "127.0.0.1",
			ResetPort:  8000,
			Timeout:    Duration(2 * time.Second),
		},
		Cue: CueConfig{
			Channel:  0,
			Velocity: 100,
			Duration: Duration(100 * time.Millisecond),
		},
		Relays:         []RelayRoute{},
		Companions:     []CompanionApp{},
		StatusInterval: Duration(time.Second),
	}
}

// Load reads the config at path, returning defaults if it does not exist.
// An empty path means DefaultPath. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Ensure slices are not nil
	if cfg.Relays == nil {
		cfg.Relays = []RelayRoute{}
	}
	if cfg.Companions == nil {
		cfg.Companions = []CompanionApp{}
	}
	for i := range cfg.Relays {
		if cfg.Relays[i].ID == "" {
			cfg.Relays[i].ID = uuid.New().String()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.Surface.Brightness < 0 || c.Surface.Brightness > 100 {
		return fmt.Errorf("surface.brightness %d is not a percentage", c.Surface.Brightness)
	}
	if c.Cue.Channel > 15 {
		return fmt.Errorf("cue.channel %d out of range 0-15", c.Cue.Channel)
	}
	if c.Cue.Velocity > 127 {
		return fmt.Errorf("cue.velocity %d out of range 0-127", c.Cue.Velocity)
	}
	for _, r := range c.Relays {
		if r.Low > r.High || r.High > 127 {
			return fmt.Errorf("relay %q: invalid listen range %d-%d", r.Name, r.Low, r.High)
		}
	}
	return nil
}

// Save writes the config to path, or to DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnabledRelays returns the routes that should run.
func (c *Config) EnabledRelays() []RelayRoute {
	var routes []RelayRoute
	for _, r := range c.Relays {
		if r.Enabled {
			routes = append(routes, r)
		}
	}
	return routes
}

// GetRelay returns a route by ID or name, or nil if not found
func (c *Config) GetRelay(idOrName string) *RelayRoute {
	for i := range c.Relays {
		if c.Relays[i].ID == idOrName || c.Relays[i].Name == idOrName {
			return &c.Relays[i]
		}
	}
	return nil
}
