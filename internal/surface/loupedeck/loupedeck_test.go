package loupedeck

import (
	"image"
	"testing"

	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchOrigin(t *testing.T) {
	tests := []struct {
		key  int
		x, y int
	}{
		{0, 0, 0},
		{3, 270, 0},
		{4, 0, 90},
		{7, 270, 90},
	}
	for _, tt := range tests {
		x, y, err := touchOrigin(tt.key)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(tt.x, tt.y), image.Pt(x, y), "key %d", tt.key)
	}

	_, _, err := touchOrigin(8)
	assert.Error(t, err)
}

func TestDeviceShape(t *testing.T) {
	var dev surface.Device = &Device{}
	w, h := dev.KeyImageFormat()
	assert.Equal(t, 90, w)
	assert.Equal(t, 90, h)
	assert.Equal(t, 10, dev.KeyCount())

	_, ok := dev.(surface.Screen)
	assert.True(t, ok, "left display is the status screen")

	assert.Error(t, dev.SetKeyColor(0, 1, 2, 3), "not open")
	assert.NoError(t, dev.Close())
}

func TestDispatch(t *testing.T) {
	dev := &Device{}
	var keys []int
	dev.SetKeyCallback(func(_ surface.Device, key int, pressed bool) {
		if pressed {
			keys = append(keys, key)
		}
	})
	dev.dispatch(2, true)
	dev.dispatch(2, false)
	dev.dispatch(9, true)
	assert.Equal(t, []int{2, 9}, keys)
}
