package sourcestore

import (
	"context"
	"fmt"
	"time"

	"github.com/rami3l/clavy/pkg/clavy"
	"go.uber.org/zap"
)

type Sources = map[clavy.AppID]clavy.InputSourceID

// Persister keeps the cache across restarts.
type Persister interface {
	Load(ctx context.Context) (Sources, error)
	Save(ctx context.Context, sources Sources) error
	Close() error
}

type Snapshotter interface {
	Snapshot() Sources
	Version() uint64
}

type Restorer interface {
	Restore(sources Sources)
}

func Restore(ctx context.Context, store Restorer, p Persister) (int, error) {
	sources, err := p.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}
	store.Restore(sources)
	return len(sources), nil
}

// SaveLooper flushes store into p every interval when it changed, and once
// more when ctx is done.
func SaveLooper(ctx context.Context, store Snapshotter, p Persister, interval time.Duration, log *zap.SugaredLogger) error {
	var saved uint64

	flush := func(ctx context.Context) error {
		version := store.Version()
		if version == saved {
			return nil
		}
		if err := p.Save(ctx, store.Snapshot()); err != nil {
			return err
		}
		saved = version
		log.Debugf("persisted input sources (version %d)", version)
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// last flush must outlive the cancelled context
			err := flush(context.Background())
			if err != nil {
				return fmt.Errorf("save: %w", err)
			}

			return ctx.Err()
		case <-ticker.C:
			err := flush(ctx)
			if err != nil {
				log.Warnf("save input sources: %v", err)
			}
		}
	}
}
