package streamdeck

import (
	"image"
	"image/color"

	sd "rafaelmartins.com/p/streamdeck"
)

// hidDeck adapts a library device to deck.
type hidDeck struct {
	dev *sd.Device
}

func enumerateHID() ([]deck, error) {
	devices, err := sd.Enumerate()
	if err != nil {
		return nil, err
	}
	decks := make([]deck, 0, len(devices))
	for _, dev := range devices {
		decks = append(decks, hidDeck{dev: dev})
	}
	return decks, nil
}

func (h hidDeck) Open() error  { return h.dev.Open() }
func (h hidDeck) Close() error { return h.dev.Close() }

func (h hidDeck) Serial() string {
	serial, err := h.dev.GetSerialNumber()
	if err != nil {
		return ""
	}
	return serial
}

func (h hidDeck) Model() string { return h.dev.GetModelName() }

func (h hidDeck) SetBrightness(percent byte) error { return h.dev.SetBrightness(percent) }

func (h hidDeck) KeyCount() int                     { return int(h.dev.GetKeyCount()) }
func (h hidDeck) KeyRect() (image.Rectangle, error) { return h.dev.GetKeyImageRectangle() }

func (h hidDeck) SetKeyImage(key int, img image.Image) error {
	return h.dev.SetKeyImage(keyID(key), img)
}

func (h hidDeck) SetKeyColor(key int, c color.Color) error {
	return h.dev.SetKeyColor(keyID(key), c)
}

func (h hidDeck) OnKey(key int, fn func()) error {
	return h.dev.AddKeyHandler(keyID(key), func(*sd.Device, *sd.Key) error {
		fn()
		return nil
	})
}

func (h hidDeck) TouchCount() int { return int(h.dev.GetTouchPointCount()) }

func (h hidDeck) SetTouchColor(tp int, c color.Color) error {
	return h.dev.SetTouchPointColor(touchPointID(tp), c)
}

func (h hidDeck) OnTouch(tp int, fn func()) error {
	return h.dev.AddTouchPointHandler(touchPointID(tp), func(*sd.Device, *sd.TouchPoint) error {
		fn()
		return nil
	})
}

func (h hidDeck) InfoBarRect() (image.Rectangle, error) { return h.dev.GetInfoBarImageRectangle() }
func (h hidDeck) SetInfoBarImage(img image.Image) error { return h.dev.SetInfoBarImage(img) }

func (h hidDeck) Listen(errCh chan error) error { return h.dev.Listen(errCh) }

func keyID(key int) sd.KeyID {
	return sd.KEY_1 + sd.KeyID(key)
}

func touchPointID(tp int) sd.TouchPointID {
	return sd.TOUCH_POINT_1 + sd.TouchPointID(tp)
}
