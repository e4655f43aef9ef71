package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// Install registers "govanilla server" as a system service.
type Install struct {
	User          string `help:"Account the service runs as; root when empty"`
	ServiceConfig string `name:"service-config" type:"path" help:"Configuration file handed to the service through VANILLA_CONFIG"`
	Print         bool   `help:"Print the service definition instead of installing it"`

	stdout io.Writer
}

func (i *Install) Run(logger *slog.Logger) error {
	exe, err := currentExecutable()
	if err != nil {
		return err
	}
	unit, err := renderUnit(serviceUnit{Exe: exe, User: i.User, Config: i.ServiceConfig})
	if err != nil {
		return err
	}
	if i.Print {
		out := i.stdout
		if out == nil {
			out = os.Stdout
		}
		_, err := io.WriteString(out, unit)
		return err
	}
	return install(unit, logger)
}

// Uninstall stops and removes the system service.
type Uninstall struct{}

func (u *Uninstall) Run(logger *slog.Logger) error { return uninstall(logger) }

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

type serviceUnit struct {
	Exe    string
	User   string
	Config string
}

var unitTemplate = template.Must(template.New("unit").Funcs(template.FuncMap{
	"quote": strconv.Quote,
	"dir":   filepath.Dir,
}).Parse(`[Unit]
Description=govanilla Wii U gamepad server
After=network-online.target vanilla-pipe.service
Wants=network-online.target

[Service]
Type=simple
ExecStart={{quote .Exe}} server
WorkingDirectory={{dir .Exe}}
{{- if .User}}
User={{.User}}
{{- end}}
{{- if .Config}}
Environment={{quote (printf "VANILLA_CONFIG=%s" .Config)}}
{{- end}}
Restart=on-failure

[Install]
WantedBy=multi-user.target
`))

func renderUnit(u serviceUnit) (string, error) {
	if strings.ContainsAny(u.User, " \n") {
		return "", fmt.Errorf("invalid service user %q", u.User)
	}
	var b strings.Builder
	if err := unitTemplate.Execute(&b, u); err != nil {
		return "", err
	}
	return b.String(), nil
}
