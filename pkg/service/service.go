package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const ID = "io.github.rami3l.clavy"

var ErrNotInstalled = errors.New("service not installed")

// Definition describes how the service manager runs the daemon. LogPath is
// the rotated log file the daemon writes itself.
type Definition struct {
	ID          string
	BinPath     string
	OutLogPath  string
	ErrLogPath  string
	LogPath     string
	DetectPopup []string
}

// DefaultDefinition runs the current executable.
func DefaultDefinition(detectPopup []string) (Definition, error) {
	bin, err := os.Executable()
	if err != nil {
		return Definition{}, fmt.Errorf("get executable path: %w", err)
	}
	bin, err = filepath.EvalSymlinks(bin)
	if err != nil {
		return Definition{}, fmt.Errorf("resolve executable path: %w", err)
	}

	return Definition{
		ID:          ID,
		BinPath:     bin,
		OutLogPath:  filepath.Join(os.TempDir(), ID+".out.log"),
		ErrLogPath:  filepath.Join(os.TempDir(), ID+".err.log"),
		LogPath:     filepath.Join(os.TempDir(), ID+".log"),
		DetectPopup: detectPopup,
	}, nil
}

// Args are the daemon arguments following the binary path.
func (d Definition) Args() []string {
	args := []string{"launch", "--no-color"}
	if d.LogPath != "" {
		args = append(args, "--log-file="+d.LogPath)
	}
	if len(d.DetectPopup) > 0 {
		args = append(args, "--detect-popup="+strings.Join(d.DetectPopup, ","))
	}
	return args
}

type Backend interface {
	// Path is where the definition file is installed.
	Path() string
	Render() ([]byte, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Reloader is implemented by backends that must be told about new or
// removed definition files.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Service struct {
	backend Backend
	log     *zap.SugaredLogger
}

func New(backend Backend, log *zap.SugaredLogger) *Service {
	return &Service{backend: backend, log: log}
}

func (s *Service) IsInstalled() bool {
	info, err := os.Stat(s.backend.Path())
	return err == nil && info.Mode().IsRegular()
}

func (s *Service) Install(ctx context.Context) error {
	path := s.backend.Path()
	if s.IsInstalled() {
		s.log.Warnf("existing service definition detected at %s, skipping installation", path)
		return nil
	}

	data, err := s.backend.Render()
	if err != nil {
		return fmt.Errorf("render service definition: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create service directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write service definition: %w", err)
	}

	if err := s.reload(ctx); err != nil {
		return err
	}

	s.log.Infof("installed service to %s", path)
	return nil
}

func (s *Service) Uninstall(ctx context.Context) error {
	path := s.backend.Path()
	if !s.IsInstalled() {
		s.log.Warnf("no service definition detected at %s, skipping uninstallation", path)
		return nil
	}

	if err := s.Stop(ctx); err != nil {
		s.log.Warnf("failed to stop service: %v", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove service definition: %w", err)
	}

	if err := s.reload(ctx); err != nil {
		return err
	}

	s.log.Infof("removed service definition at %s", path)
	return nil
}

func (s *Service) Reinstall(ctx context.Context) error {
	if err := s.Uninstall(ctx); err != nil {
		return err
	}
	return s.Install(ctx)
}

// Start installs the service first if needed.
func (s *Service) Start(ctx context.Context) error {
	if !s.IsInstalled() {
		if err := s.Install(ctx); err != nil {
			return err
		}
	}

	s.log.Info("starting service...")
	if err := s.backend.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.log.Info("service started")
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if !s.IsInstalled() {
		return fmt.Errorf("stop service: %w", ErrNotInstalled)
	}

	s.log.Info("stopping service...")
	if err := s.backend.Stop(ctx); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	s.log.Info("service stopped")
	return nil
}

func (s *Service) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

func (s *Service) reload(ctx context.Context) error {
	r, ok := s.backend.(Reloader)
	if !ok {
		return nil
	}
	if err := r.Reload(ctx); err != nil {
		return fmt.Errorf("reload service manager: %w", err)
	}
	return nil
}
