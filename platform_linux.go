//go:build linux

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/hyprland"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/service"
	"github.com/rami3l/clavy/pkg/xkblayouts"
	"go.uber.org/zap"
)

type hyprlandPlatform struct{}

func currentPlatform() platform {
	return hyprlandPlatform{}
}

func (hyprlandPlatform) Preflight(log *zap.SugaredLogger) {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") == "" {
		log.Warn("HYPRLAND_INSTANCE_SIGNATURE is not set, the daemon only works inside a Hyprland session")
	}
}

func (hyprlandPlatform) Start(center *notification.Center, cfg *config.Config, log *zap.SugaredLogger) (*session, error) {
	registry, err := xkblayouts.ParseLayouts(cfg.Hyprland.EvdevXMLPath)
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}

	sockets, err := hyprland.FindSockets()
	if err != nil {
		return nil, fmt.Errorf("find sockets: %w", err)
	}

	events, err := hyprland.DialEvents(sockets.Events, log)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	hyprctl := hyprland.NewHyprctl(sockets.Control, registry, cfg.Hyprland.Keyboard)
	if kb, sources, err := hyprctl.Available(); err != nil {
		log.Warnf("list keyboard layouts: %v", err)
	} else {
		log.Infof("following keyboard %s with input sources %q", kb, sources)
	}

	return &session{
		sources:    hyprctl,
		foreground: hyprctl,
		producers: []clavy.Producer{
			{Source: center, Name: hyprland.ActiveWindowChanged, Resolve: clavy.FromPayload()},
		},
		inputSourceChanged: hyprland.ActiveLayoutChanged,
		runners: []func(context.Context) error{
			func(ctx context.Context) error {
				return events.Run(ctx, center)
			},
		},
		close: func() {
			_ = events.Close()
		},
	}, nil
}

func (hyprlandPlatform) MainLoop(ctx context.Context) {
	<-ctx.Done()
}

func (hyprlandPlatform) ServiceBackend(def service.Definition) service.Backend {
	return service.NewSystemd(def)
}
