package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/adrg/xdg"
)

var plistTemplate = template.Must(template.New("launchd.plist").Funcs(template.FuncMap{"xml": xmlEscape}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{ .ID | xml }}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{ .BinPath | xml }}</string>
{{- range .Args }}
		<string>{{ . | xml }}</string>
{{- end }}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
		<key>Crashed</key>
		<true/>
	</dict>
	<key>StandardOutPath</key>
	<string>{{ .OutLogPath | xml }}</string>
	<key>StandardErrorPath</key>
	<string>{{ .ErrLogPath | xml }}</string>
	<key>ProcessType</key>
	<string>Interactive</string>
</dict>
</plist>
`))

func xmlEscape(s string) string {
	var b strings.Builder
	// strings.Builder never fails a write
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Launchd manages a per-user launch agent.
type Launchd struct {
	def       Definition
	plistPath string
	domain    string
	run       Runner
}

type LaunchdOption func(*Launchd)

func WithRunner(run Runner) LaunchdOption {
	return func(l *Launchd) { l.run = run }
}

// WithPlistDir overrides ~/Library/LaunchAgents.
func WithPlistDir(dir string) LaunchdOption {
	return func(l *Launchd) { l.plistPath = filepath.Join(dir, l.def.ID+".plist") }
}

func NewLaunchd(def Definition, opts ...LaunchdOption) *Launchd {
	l := &Launchd{
		def:       def,
		plistPath: filepath.Join(xdg.Home, "Library", "LaunchAgents", def.ID+".plist"),
		domain:    fmt.Sprintf("gui/%d", os.Getuid()),
		run:       execRunner,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Launchd) Path() string {
	return l.plistPath
}

func (l *Launchd) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, l.def); err != nil {
		return nil, fmt.Errorf("execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *Launchd) Start(ctx context.Context) error {
	return l.launchctl(ctx, "bootstrap", l.domain, l.plistPath)
}

func (l *Launchd) Stop(ctx context.Context) error {
	return l.launchctl(ctx, "bootout", l.domain+"/"+l.def.ID)
}

func (l *Launchd) launchctl(ctx context.Context, args ...string) error {
	out, err := l.run(ctx, "launchctl", args...)
	if err != nil {
		return fmt.Errorf("launchctl %s: %w, output: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
