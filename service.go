package main

import (
	"context"
	"fmt"

	"github.com/rami3l/clavy/pkg/service"
	"github.com/spf13/cobra"
)

func addServiceCommands(root *cobra.Command, a *app) {
	for _, c := range []struct {
		use, short string
		action     func(*service.Service, context.Context) error
	}{
		{"install", "Install the service", (*service.Service).Install},
		{"uninstall", "Uninstall the service", (*service.Service).Uninstall},
		{"reinstall", "Reinstall the service", (*service.Service).Reinstall},
		{"start", "Start the service", (*service.Service).Start},
		{"stop", "Stop the service", (*service.Service).Stop},
		{"restart", "Restart the service", (*service.Service).Restart},
	} {
		root.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := a.service()
				if err != nil {
					return err
				}
				return c.action(svc, cmd.Context())
			},
		})
	}
}

func (a *app) service() (*service.Service, error) {
	def, err := service.DefaultDefinition(a.cfg.DetectPopup)
	if err != nil {
		return nil, fmt.Errorf("create service definition: %w", err)
	}

	backend := a.platform.ServiceBackend(def)
	if backend == nil {
		return nil, fmt.Errorf("manage service: %w", errUnsupported)
	}

	return service.New(backend, a.log), nil
}
