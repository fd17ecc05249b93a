package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/config"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/sourcestore"
	jsonstore "github.com/rami3l/clavy/pkg/sourcestore/json"
	"github.com/rami3l/clavy/pkg/sourcestore/memory"
	"github.com/rami3l/clavy/pkg/sourcestore/sqlite"
	"github.com/rami3l/clavy/pkg/tracker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// session is what a platform contributes to a running daemon.
type session struct {
	sources    clavy.InputSources
	foreground clavy.ForegroundResolver
	producers  []clavy.Producer
	// posted whenever the input source may have changed
	inputSourceChanged string
	// nil when the platform has no observer tracking
	tracker *tracker.Tracker
	runners []func(ctx context.Context) error
	close   func()
}

func (a *app) launch(ctx context.Context) error {
	cfg := a.cfg
	center := notification.NewCenter()
	store := memory.NewStore()

	persister, err := openPersister(cfg, a.log)
	if err != nil {
		return fmt.Errorf("open input source store: %w", err)
	}
	if persister != nil {
		defer persister.Close()
		n, err := sourcestore.Restore(ctx, store, persister)
		if err != nil {
			return fmt.Errorf("restore input sources: %w", err)
		}
		a.log.Infof("restored %d input sources", n)
	}

	sess, err := a.platform.Start(center, cfg, a.log)
	if err != nil {
		return err
	}
	defer sess.close()

	sw := clavy.NewSwitcher(store, sess.sources, sess.foreground, a.log, clavy.WithQueueSize(cfg.QueueSize))

	correlator := clavy.NewCorrelator(sw, sw, a.log)
	defer correlator.Close()
	if err := correlator.AttachAll(sess.producers); err != nil {
		return fmt.Errorf("attach activations: %w", err)
	}
	if err := correlator.AttachInputSource(center, sess.inputSourceChanged, sess.sources); err != nil {
		return fmt.Errorf("attach input source: %w", err)
	}

	a.manager.OnChange(func(cfg *config.Config, err error) {
		if err != nil {
			a.log.Warnf("ignoring config change: %v", err)
			return
		}
		a.log.Info("config reloaded")
		a.applyConfig(cfg, sess.tracker)
	})
	a.manager.Watch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sw.Run(gctx)
	})
	for _, run := range sess.runners {
		g.Go(func() error {
			return run(gctx)
		})
	}
	if persister != nil {
		g.Go(func() error {
			return sourcestore.SaveLooper(gctx, store, persister, cfg.Store.FlushInterval, a.log)
		})
	}
	g.Go(func() error {
		return systemdNotifyLoop(gctx)
	})

	a.log.Info("started clavy")

	// blocks the main goroutine on platforms that need it
	a.platform.MainLoop(gctx)

	err = g.Wait()
	switch {
	case errors.Is(err, context.Canceled):
		a.log.Info("shutting down")
		return nil
	case err != nil:
		return err
	}

	return nil
}

func openPersister(cfg *config.Config, log *zap.SugaredLogger) (sourcestore.Persister, error) {
	if cfg.Store.Backend == config.StoreMemory {
		return nil, nil
	}

	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	log.Debugf("persisting input sources to %s", path)

	switch cfg.Store.Backend {
	case config.StoreJSON:
		p, err := jsonstore.NewPersister(path)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.StoreSQLite:
		p, err := sqlite.NewPersister(path, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
}
