package launcher

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// EnableAutostart registers livedeck to start at login with the given
// arguments, e.g. "run --config /path/config.json".
func EnableAutostart(args ...string) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return enableMacOS(execPath, args)
	case "linux":
		return enableLinux(execPath, args)
	case "windows":
		return enableWindows(execPath, args)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// DisableAutostart removes the login registration. It is not an error if
// none exists.
func DisableAutostart() error {
	switch runtime.GOOS {
	case "darwin":
		return removeIfExists(macOSPlistPath())
	case "linux":
		return removeIfExists(linuxDesktopPath())
	case "windows":
		return disableWindows()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// AutostartEnabled reports whether livedeck starts at login.
func AutostartEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return exists(macOSPlistPath())
	case "linux":
		return exists(linuxDesktopPath())
	case "windows":
		return exec.Command("reg", "query", windowsRegistryKey, "/v", windowsAppName).Run() == nil
	default:
		return false
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// --- macOS ---

const macOSLabel = "com.livedeck"

func macOSPlistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", macOSLabel+".plist")
}

func enableMacOS(execPath string, args []string) error {
	var b strings.Builder
	for _, a := range append([]string{execPath}, args...) {
		b.WriteString("        <string>")
		if err := xml.EscapeText(&b, []byte(a)); err != nil {
			return err
		}
		b.WriteString("</string>\n")
	}
	plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`, macOSLabel, b.String())
	return writeFile(macOSPlistPath(), plist)
}

// --- Linux ---

func linuxDesktopPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", "livedeck.desktop")
}

func enableLinux(execPath string, args []string) error {
	desktop := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=livedeck
Exec=%s
Hidden=false
NoDisplay=false
X-GNOME-Autostart-enabled=true
`, strings.Join(append([]string{execPath}, args...), " "))
	return writeFile(linuxDesktopPath(), desktop)
}

// --- Windows ---

const (
	windowsRegistryKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
	windowsAppName     = "livedeck"
)

func enableWindows(execPath string, args []string) error {
	command := strings.Join(append([]string{`"` + execPath + `"`}, args...), " ")
	return exec.Command("reg", "add", windowsRegistryKey,
		"/v", windowsAppName,
		"/t", "REG_SZ",
		"/d", command,
		"/f").Run()
}

func disableWindows() error {
	output, err := exec.Command("reg", "delete", windowsRegistryKey, "/v", windowsAppName, "/f").CombinedOutput()
	// A missing value means it was never enabled
	if err != nil && !strings.Contains(string(output), "unable to find") {
		return err
	}
	return nil
}
