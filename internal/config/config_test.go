package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, LayoutConfig{SongsPerPage: 7, Stop: 7, NavBack: 8, NavForward: 9}, cfg.Layout)
	assert.Equal(t, "streamdeck", cfg.Surface.Driver)
	assert.Equal(t, 11000, cfg.Transport.SendPort)
	assert.Equal(t, 100*time.Millisecond, cfg.Cue.Duration.Std())
	assert.Equal(t, time.Second, cfg.StatusInterval.Std())
	assert.NotNil(t, cfg.Relays)
	assert.NotNil(t, cfg.Companions)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"songs_path": "/srv/songs.json",
		"surface": {"driver": "virtual", "brightness": 40},
		"transport": {"timeout": "500ms"},
		"cue": {"enabled": true, "port": "IAC Bus 1", "duration": 250},
		"relays": [{"name": "keys", "enabled": true, "inputs": ["A"], "output": "B", "low": 36, "high": 96}]
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/songs.json", cfg.SongsPath)
	assert.Equal(t, "virtual", cfg.Surface.Driver)
	assert.Equal(t, 40, cfg.Surface.Brightness)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.Timeout.Std())
	assert.Equal(t, "127.0.0.1", cfg.Transport.Host, "unset fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Cue.Duration.Std())
	assert.Equal(t, uint8(100), cfg.Cue.Velocity)

	require.Len(t, cfg.Relays, 1)
	assert.NotEmpty(t, cfg.Relays[0].ID, "missing IDs are generated")
	assert.Len(t, cfg.EnabledRelays(), 1)
	assert.Equal(t, cfg.Relays[0].ID, cfg.GetRelay("keys").ID)
	assert.Nil(t, cfg.GetRelay("drums"))
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"syntax":      `{"surface": `,
		"brightness":  `{"surface": {"brightness": 140}}`,
		"channel":     `{"cue": {"channel": 16}}`,
		"relay range": `{"relays": [{"name": "x", "low": 90, "high": 20}]}`,
		"duration":    `{"cue": {"duration": "soon"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.OpenAtLogin = true
	cfg.Relays = append(cfg.Relays, NewRelayRoute())

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2s", raw["transport"].(map[string]any)["timeout"])

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewRelayRoute(t *testing.T) {
	a, b := NewRelayRoute(), NewRelayRoute()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint8(21), a.Low)
	assert.Equal(t, uint8(108), a.High)
	assert.False(t, a.Enabled)
}
