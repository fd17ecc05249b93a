//go:build darwin

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/darwin"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/service"
	"github.com/rami3l/clavy/pkg/tracker"
	"go.uber.org/zap"
)

func init() {
	// the main run loop only runs on the main thread
	runtime.LockOSThread()
}

type macOS struct{}

func currentPlatform() platform {
	return macOS{}
}

func (macOS) Preflight(log *zap.SugaredLogger) {
	if darwin.HasAXPrivileges(false) {
		return
	}
	log.Warn("it looks like required accessibility privileges have not been granted yet, and the service might exit immediately on startup...")
	log.Warn("to fix this issue, you may need to update your configuration in `System Settings > Privacy & Security > Accessibility`")
}

func (macOS) Start(center *notification.Center, cfg *config.Config, log *zap.SugaredLogger) (*session, error) {
	if !darwin.HasAXPrivileges(true) {
		return nil, darwin.ErrAXPrivilegesNotDetected
	}

	stopWorkspace, err := darwin.ObserveWorkspace(center)
	if err != nil {
		return nil, fmt.Errorf("observe workspace: %w", err)
	}

	ws := darwin.Workspace{}
	tr := tracker.New(ws, darwin.ObserverFactory{}, center, policyFor(cfg), log)
	watch, err := tr.Watch(center, darwin.RunningApplicationsChanged)
	if err != nil {
		stopWorkspace()
		return nil, fmt.Errorf("watch running applications: %w", err)
	}

	return &session{
		sources:    darwin.InputSources{},
		foreground: ws,
		producers: []clavy.Producer{
			{Source: center, Name: darwin.ApplicationActivated, Resolve: clavy.FromPayload()},
			{Source: center, Name: notification.FocusedWindowChanged, Resolve: clavy.FromPID(ws)},
			// the hidden app is no longer focused, whatever took over is
			{Source: center, Name: notification.AppHidden, Resolve: clavy.FromForeground(ws)},
		},
		inputSourceChanged: darwin.InputSourceChanged,
		tracker:            tr,
		runners:            []func(context.Context) error{tr.Run},
		close: func() {
			watch.Close()
			stopWorkspace()
		},
	}, nil
}

func (macOS) MainLoop(ctx context.Context) {
	darwin.RunMainLoop(ctx)
}

func (macOS) ServiceBackend(def service.Definition) service.Backend {
	return service.NewLaunchd(def)
}
