package controller

import (
	"errors"
	"fmt"
)

// Layout assigns surface keys to roles: keys 0..SongsPerPage-1 show
// songs, one key stops everything and two keys page through the catalog.
type Layout struct {
	SongsPerPage int
	Stop         int
	NavBack      int
	NavForward   int
}

// DefaultLayout is the 7+1 main grid with two touch-strip nav keys.
func DefaultLayout() Layout {
	return Layout{SongsPerPage: 7, Stop: 7, NavBack: 8, NavForward: 9}
}

// Validate checks the layout against a device with keyCount keys.
func (l Layout) Validate(keyCount int) error {
	if l.SongsPerPage < 1 {
		return errors.New("layout: at least one song key is required")
	}
	roles := map[string]int{"stop": l.Stop, "nav back": l.NavBack, "nav forward": l.NavForward}
	seen := map[int]string{}
	for name, key := range roles {
		if key < l.SongsPerPage {
			return fmt.Errorf("layout: %s key %d overlaps the song keys 0-%d", name, key, l.SongsPerPage-1)
		}
		if key >= keyCount {
			return fmt.Errorf("layout: %s key %d exceeds the device's %d keys", name, key, keyCount)
		}
		if other, dup := seen[key]; dup {
			return fmt.Errorf("layout: %s and %s share key %d", name, other, key)
		}
		seen[key] = name
	}
	return nil
}
