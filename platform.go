package main

import (
	"context"

	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/service"
	"go.uber.org/zap"
)

type platform interface {
	// Preflight warns about missing prerequisites before any command runs.
	Preflight(log *zap.SugaredLogger)
	// Start hooks native notifications up to center.
	Start(center *notification.Center, cfg *config.Config, log *zap.SugaredLogger) (*session, error)
	// MainLoop returns once ctx is done.
	MainLoop(ctx context.Context)
	// ServiceBackend returns nil when services are not supported.
	ServiceBackend(def service.Definition) service.Backend
}
