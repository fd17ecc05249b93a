package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/logging"
	"github.com/rami3l/clavy/pkg/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var errUnsupported = errors.New("unsupported platform")

func main() {
	err := run()
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand(currentPlatform()).ExecuteContext(ctx)
}

type app struct {
	platform platform

	configPath  string
	debug       bool
	noColor     bool
	logFile     string
	detectPopup []string

	manager *config.Manager
	cfg     *config.Config
	log     *zap.SugaredLogger
	level   zap.AtomicLevel
}

func newRootCommand(p platform) *cobra.Command {
	a := &app{platform: p}

	cmd := &cobra.Command{
		Use:           "clavy",
		Short:         "Switch the keyboard input source to match the focused app",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.launch(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to the config file")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "do not use colors in output")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this file, rotated")
	flags.StringSliceVar(&a.detectPopup, "detect-popup", nil, "bundle ids of launcher apps whose popups should be observed")

	cmd.AddCommand(&cobra.Command{
		Use:   "launch",
		Short: "Launch the daemon directly in the console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.launch(cmd.Context())
		},
	})
	addServiceCommands(cmd, a)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "clavy", version)
			return err
		},
	})

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	a.manager = config.NewManager(a.configPath)
	if err := a.manager.BindFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := a.manager.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	a.log, a.level, err = logging.Build(logging.Options{
		Debug:      cfg.Debug,
		Level:      cfg.Log.Level,
		NoColor:    cfg.NoColor,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	if used := a.manager.ConfigFileUsed(); used != "" {
		a.log.Debugf("loaded config from %s", used)
	}

	a.platform.Preflight(a.log)
	return nil
}

// applyConfig is called for every successful reload of the config file.
func (a *app) applyConfig(cfg *config.Config, tr *tracker.Tracker) {
	if !cfg.Debug {
		if err := logging.SetLevel(a.level, cfg.Log.Level); err != nil {
			a.log.Warnf("apply log level: %v", err)
		}
	}

	if tr != nil {
		tr.SetPolicy(policyFor(cfg))
		tr.Trigger()
	}
}

func policyFor(cfg *config.Config) tracker.Policy {
	detectPopup := tracker.DefaultDetectPopup
	if len(cfg.DetectPopup) > 0 {
		detectPopup = appIDs(cfg.DetectPopup)
	}
	return tracker.NewPolicy(appIDs(cfg.Exclude), detectPopup)
}

func appIDs(in []string) []clavy.AppID {
	out := make([]clavy.AppID, 0, len(in))
	for _, id := range in {
		out = append(out, clavy.AppID(id))
	}
	return out
}
