package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMissing is returned when the song data file does not exist.
	ErrMissing = errors.New("song data file not found")
	// ErrMalformed is returned when the song data file cannot be parsed
	// or lacks the expected structure.
	ErrMalformed = errors.New("song data file is malformed")
)

// LoadError describes a failed catalog load. It wraps ErrMissing or ErrMalformed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load catalog: %v", e.Err)
	}
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// TrackRef binds a song to a transport track, either by index or by name.
// The zero value is unset.
type TrackRef struct {
	Index int
	Name  string
	set   bool
}

// TrackIndex returns a reference to the track at index i.
func TrackIndex(i int) TrackRef {
	return TrackRef{Index: i, set: true}
}

// TrackName returns a reference to the track named name.
func TrackName(name string) TrackRef {
	return TrackRef{Name: name, set: true}
}

// IsSet reports whether the reference points at anything.
func (r TrackRef) IsSet() bool {
	return r.set
}

// ByName reports whether the reference is a track name.
func (r TrackRef) ByName() bool {
	return r.set && r.Name != ""
}

func (r TrackRef) String() string {
	switch {
	case !r.set:
		return "<unset>"
	case r.Name != "":
		return strconv.Quote(r.Name)
	default:
		return strconv.Itoa(r.Index)
	}
}

// UnmarshalJSON accepts a track index (number) or a track name (string).
func (r *TrackRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = TrackRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			*r = TrackRef{}
			return nil
		}
		*r = TrackName(name)
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("ableton_track must be an integer index or a track name: %w", err)
	}
	*r = TrackIndex(idx)
	return nil
}

// MarshalJSON writes the reference back in the form it was read.
func (r TrackRef) MarshalJSON() ([]byte, error) {
	switch {
	case !r.set:
		return []byte("null"), nil
	case r.Name != "":
		return json.Marshal(r.Name)
	default:
		return json.Marshal(r.Index)
	}
}

// Song is a single entry of the song data file.
type Song struct {
	ID     *int     `json:"id,omitempty"`
	Title  string   `json:"title"`
	Album  string   `json:"album,omitempty"`
	Artist string   `json:"artist,omitempty"`
	Image  string   `json:"image,omitempty"`
	Key    string   `json:"key,omitempty"`
	Track  TrackRef `json:"ableton_track"`
	Clip   *int     `json:"clip,omitempty"` // designated clip slot, 0 when absent
}

// Identity is the cache key of a song: its numeric id, or its title when no id is present.
func (s Song) Identity() string {
	if s.ID != nil {
		return "id:" + strconv.Itoa(*s.ID)
	}
	return "title:" + s.Title
}

// ClipSlot returns the designated clip slot.
func (s Song) ClipSlot() int {
	if s.Clip == nil || *s.Clip < 0 {
		return 0
	}
	return *s.Clip
}

// Catalog is the ordered, read-only list of songs for a session.
type Catalog struct {
	songs []Song
}

// New builds a catalog from songs in the given order.
func New(songs []Song) *Catalog {
	cp := make([]Song, len(songs))
	copy(cp, songs)
	return &Catalog{songs: cp}
}

// Len returns the number of songs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.songs)
}

// At returns the song at index i.
func (c *Catalog) At(i int) (Song, bool) {
	if c == nil || i < 0 || i >= len(c.songs) {
		return Song{}, false
	}
	return c.songs[i], true
}

// Slice returns a copy of the songs in [start, end), clamped to the catalog.
func (c *Catalog) Slice(start, end int) []Song {
	n := c.Len()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return nil
	}
	out := make([]Song, end-start)
	copy(out, c.songs[start:end])
	return out
}

// All returns a copy of every song in display order.
func (c *Catalog) All() []Song {
	return c.Slice(0, c.Len())
}

type songFile struct {
	Songs *[]json.RawMessage `json:"songs"`
}

// Load reads the song data file at path.
// A missing file yields ErrMissing and any structural problem ErrMalformed,
// both wrapped in a *LoadError. There is no partial result.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Path: path, Err: ErrMissing}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return c, nil
}

// Parse decodes song data from r.
func Parse(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	var file songFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}
	if file.Songs == nil {
		return nil, malformed("missing top-level \"songs\" list")
	}

	songs := make([]Song, 0, len(*file.Songs))
	for i, raw := range *file.Songs {
		var s Song
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, malformed("song %d: %v", i, err)
		}
		if strings.TrimSpace(s.Title) == "" {
			return nil, malformed("song %d: missing title", i)
		}
		songs = append(songs, s)
	}
	return &Catalog{songs: songs}, nil
}

func malformed(format string, args ...any) error {
	return &LoadError{Err: fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))}
}
