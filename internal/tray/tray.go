package tray

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/PixPMusic/livedeck/internal/render"
)

const iconSize = 64

// Callbacks for tray menu actions
type Callbacks struct {
	OnStopAll func()
	OnQuit    func()
	// SetOpenAtLogin persists the login item choice. The menu check mark
	// only changes when it succeeds.
	SetOpenAtLogin func(enabled bool) error
}

// Setup installs the system tray menu. It reports false when the fyne
// driver has no system tray.
func Setup(app fyne.App, openAtLogin bool, callbacks Callbacks) bool {
	desk, ok := app.(desktop.App)
	if !ok {
		return false
	}

	desk.SetSystemTrayMenu(buildMenu(openAtLogin, callbacks, desk.SetSystemTrayMenu))
	if icon, err := render.TrayIcon(iconSize); err == nil {
		desk.SetSystemTrayIcon(fyne.NewStaticResource("livedeck.png", icon))
	}
	return true
}

// buildMenu creates the tray menu. refresh re-installs it after a check
// mark changes.
func buildMenu(openAtLogin bool, callbacks Callbacks, refresh func(*fyne.Menu)) *fyne.Menu {
	stopItem := fyne.NewMenuItem("Stop All", func() {
		if callbacks.OnStopAll != nil {
			callbacks.OnStopAll()
		}
	})

	loginItem := fyne.NewMenuItem("Open at Login", nil)
	loginItem.Checked = openAtLogin

	quitItem := fyne.NewMenuItem("Quit", func() {
		if callbacks.OnQuit != nil {
			callbacks.OnQuit()
		}
	})

	menu := fyne.NewMenu("livedeck",
		stopItem,
		fyne.NewMenuItemSeparator(),
		loginItem,
		fyne.NewMenuItemSeparator(),
		quitItem,
	)

	// Set the action after menu is created so it can be refreshed
	loginItem.Action = func() {
		want := !loginItem.Checked
		if callbacks.SetOpenAtLogin != nil {
			if err := callbacks.SetOpenAtLogin(want); err != nil {
				return
			}
		}
		loginItem.Checked = want
		refresh(menu)
	}
	return menu
}
