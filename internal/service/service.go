// Package service writes a user-level systemd unit for the daemon.
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const unitTemplate = `[Unit]
Description=Crux voice assistant daemon
After=sound.target network-online.target

[Service]
Type=simple
ExecStart={{.Binary}} serve --config {{.Config}}
Restart=on-failure
RestartSec=2
{{- range $k, $v := .Env }}
Environment={{$k}}={{$v}}
{{- end }}

[Install]
WantedBy=default.target
`

type UnitParams struct {
	Name   string
	Binary string
	Config string
	Env    map[string]string
}

// UnitPath returns the user unit path for a service name.
func UnitPath(name string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", fmt.Sprintf("%s.service", name))
}

// WriteUnit writes a user-level systemd unit file.
func WriteUnit(params UnitParams) (string, error) {
	path := UnitPath(params.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	tpl := template.Must(template.New("unit").Parse(unitTemplate))
	if err := tpl.Execute(f, params); err != nil {
		return "", err
	}
	return path, nil
}

// Status returns whether the unit file exists.
func Status(name string) (string, bool) {
	path := UnitPath(name)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return path, false
}
