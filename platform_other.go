//go:build !darwin && !linux

package main

import (
	"context"

	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/service"
	"go.uber.org/zap"
)

type unsupported struct{}

func currentPlatform() platform {
	return unsupported{}
}

func (unsupported) Preflight(log *zap.SugaredLogger) {
	log.Warn("clavy only supports macOS and Hyprland")
}

func (unsupported) Start(*notification.Center, *config.Config, *zap.SugaredLogger) (*session, error) {
	return nil, errUnsupported
}

func (unsupported) MainLoop(ctx context.Context) {
	<-ctx.Done()
}

func (unsupported) ServiceBackend(service.Definition) service.Backend {
	return nil
}
