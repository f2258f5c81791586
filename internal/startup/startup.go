// Package startup registers footswitchd serve to start at user login.
package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

const (
	label = "com.gopher-footswitch.footswitchd"
	unit  = "footswitchd.service"
	// Windows Run key value name
	regValue = "GopherFootswitch"
	regKey   = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
	regGone  = "unable to find the specified registry key or value"
)

// Installer writes the per-user autostart entry for the host platform
type Installer struct {
	fs        afero.Fs
	goos      string
	home      string
	configDir string
	exe       string
	run       func(name string, args ...string) ([]byte, error)
}

// NewInstaller targets the running executable on the host OS
func NewInstaller() (*Installer, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate home: %w", err)
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(home, ".config")
	}
	return &Installer{
		fs:        afero.NewOsFs(),
		goos:      runtime.GOOS,
		home:      home,
		configDir: configDir,
		exe:       exe,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
	}, nil
}

// Path is the autostart file, empty on Windows where the entry lives in the registry
func (i *Installer) Path() string {
	switch i.goos {
	case "darwin":
		return filepath.Join(i.home, "Library", "LaunchAgents", label+".plist")
	case "linux":
		return filepath.Join(i.configDir, "systemd", "user", unit)
	}
	return ""
}

func (i *Installer) command(args []string) []string {
	return append([]string{i.exe, "serve"}, args...)
}

// Enable registers footswitchd serve with extra args to start at login
func (i *Installer) Enable(args ...string) error {
	switch i.goos {
	case "darwin":
		return i.write(launchAgent(i.command(args)))
	case "linux":
		return i.write(systemdUnit(i.command(args)))
	case "windows":
		out, err := i.run("reg", "add", regKey, "/v", regValue, "/t", "REG_SZ", "/d", windowsCommand(i.command(args)), "/f")
		if err != nil {
			return fmt.Errorf("reg add: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}
	return fmt.Errorf("unsupported platform: %s", i.goos)
}

// Disable removes the entry. Removing a missing entry is not an error.
func (i *Installer) Disable() error {
	switch i.goos {
	case "darwin", "linux":
		err := i.fs.Remove(i.Path())
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", i.Path(), err)
		}
		return nil
	case "windows":
		out, err := i.run("reg", "delete", regKey, "/v", regValue, "/f")
		if err != nil && !strings.Contains(string(out), regGone) {
			return fmt.Errorf("reg delete: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported platform: %s", i.goos)
}

// IsEnabled reports whether an entry is registered
func (i *Installer) IsEnabled() bool {
	switch i.goos {
	case "darwin", "linux":
		ok, _ := afero.Exists(i.fs, i.Path())
		return ok
	case "windows":
		_, err := i.run("reg", "query", regKey, "/v", regValue)
		return err == nil
	}
	return false
}

func (i *Installer) write(content string) error {
	path := i.Path()
	if err := i.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return afero.WriteFile(i.fs, path, []byte(content), 0644)
}

func launchAgent(argv []string) string {
	var b strings.Builder
	for _, a := range argv {
		fmt.Fprintf(&b, "        <string>%s</string>\n", xmlEscape(a))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
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
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`, label, b.String())
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscape(s string) string { return xmlEscaper.Replace(s) }

func systemdUnit(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return fmt.Sprintf(`[Unit]
Description=MIDI foot controller daemon

[Service]
ExecStart=%s
Restart=on-failure

[Install]
WantedBy=default.target
`, strings.Join(quoted, " "))
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func windowsCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
