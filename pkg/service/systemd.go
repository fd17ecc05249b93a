package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/unit"
)

const UnitName = "clavy.service"

// UnitManager is the subset of the systemd D-Bus API used to control the
// user unit.
type UnitManager interface {
	ReloadContext(ctx context.Context) error
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

type Connector func(ctx context.Context) (UnitManager, error)

func userConnection(ctx context.Context) (UnitManager, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to user systemd: %w", err)
	}
	return conn, nil
}

// Systemd manages a systemd user unit.
type Systemd struct {
	def      Definition
	unitPath string
	connect  Connector
}

type SystemdOption func(*Systemd)

func WithConnector(connect Connector) SystemdOption {
	return func(s *Systemd) { s.connect = connect }
}

// WithUnitDir overrides $XDG_CONFIG_HOME/systemd/user.
func WithUnitDir(dir string) SystemdOption {
	return func(s *Systemd) { s.unitPath = filepath.Join(dir, UnitName) }
}

func NewSystemd(def Definition, opts ...SystemdOption) *Systemd {
	s := &Systemd{
		def:      def,
		unitPath: filepath.Join(xdg.ConfigHome, "systemd", "user", UnitName),
		connect:  userConnection,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Systemd) Path() string {
	return s.unitPath
}

func (s *Systemd) Render() ([]byte, error) {
	execStart := append([]string{s.def.BinPath}, s.def.Args()...)

	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Switch the input source to match the focused app"),
		unit.NewUnitOption("Unit", "PartOf", "graphical-session.target"),
		unit.NewUnitOption("Unit", "After", "graphical-session.target"),
		unit.NewUnitOption("Service", "Type", "notify"),
		unit.NewUnitOption("Service", "ExecStart", strings.Join(execStart, " ")),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "WatchdogSec", "30"),
		unit.NewUnitOption("Install", "WantedBy", "graphical-session.target"),
	}

	data, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return nil, fmt.Errorf("serialize unit: %w", err)
	}
	return data, nil
}

func (s *Systemd) Reload(ctx context.Context) error {
	return s.withManager(ctx, func(m UnitManager) error {
		return m.ReloadContext(ctx)
	})
}

func (s *Systemd) Start(ctx context.Context) error {
	return s.withManager(ctx, func(m UnitManager) error {
		return waitJob(ctx, "start", func(ch chan<- string) (int, error) {
			return m.StartUnitContext(ctx, UnitName, "replace", ch)
		})
	})
}

func (s *Systemd) Stop(ctx context.Context) error {
	return s.withManager(ctx, func(m UnitManager) error {
		return waitJob(ctx, "stop", func(ch chan<- string) (int, error) {
			return m.StopUnitContext(ctx, UnitName, "replace", ch)
		})
	})
}

func (s *Systemd) withManager(ctx context.Context, fn func(UnitManager) error) error {
	m, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func waitJob(ctx context.Context, op string, enqueue func(chan<- string) (int, error)) error {
	ch := make(chan string, 1)
	if _, err := enqueue(ch); err != nil {
		return fmt.Errorf("%s unit: %w", op, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("%s unit: job %s", op, result)
		}
		return nil
	}
}
