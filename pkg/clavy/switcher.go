package clavy

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultQueueSize = 256

type Switcher struct {
	activations chan ActivationEvent
	changes     chan InputSourceChange
	done        chan struct{}
	stopOnce    sync.Once

	store      Store
	sources    InputSources
	foreground ForegroundResolver
	log        *zap.SugaredLogger
}

type Option func(*Switcher)

func WithQueueSize(n int) Option {
	return func(s *Switcher) {
		if n > 0 {
			s.activations = make(chan ActivationEvent, n)
			s.changes = make(chan InputSourceChange, n)
		}
	}
}

func NewSwitcher(
	store Store,
	sources InputSources,
	foreground ForegroundResolver,
	log *zap.SugaredLogger,
	opts ...Option,
) *Switcher {
	s := &Switcher{
		activations: make(chan ActivationEvent, DefaultQueueSize),
		changes:     make(chan InputSourceChange, DefaultQueueSize),
		done:        make(chan struct{}),
		store:       store,
		sources:     sources,
		foreground:  foreground,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activated enqueues an activation. It may be called from any goroutine and
// drops the event once the switcher has stopped.
func (s *Switcher) Activated(source string, app AppID) {
	if app == "" {
		return
	}

	select {
	case s.activations <- ActivationEvent{Source: source, App: app}:
	case <-s.done:
	}
}

// InputSourceChanged enqueues an input source detected after the fact.
func (s *Switcher) InputSourceChanged(src InputSourceID) {
	if src == "" {
		return
	}
	s.sendChange(InputSourceChange{Source: src, Origin: OriginSystem})
}

func (s *Switcher) sendChange(change InputSourceChange) {
	select {
	case s.changes <- change:
	case <-s.done:
	}
}

// Run consumes both streams until ctx is done.
func (s *Switcher) Run(ctx context.Context) error {
	defer s.stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.processActivations(ctx)
	})
	g.Go(func() error {
		return s.processChanges(ctx)
	})

	return g.Wait()
}

func (s *Switcher) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Switcher) processActivations(ctx context.Context) error {
	var prevApp AppID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.activations:
			prevApp = s.processActivation(ctx, prevApp, ev)
		}
	}
}

func (s *Switcher) processActivation(ctx context.Context, prevApp AppID, ev ActivationEvent) AppID {
	if ev.App == prevApp {
		return prevApp
	}
	s.log.Debugf("detected activation of app %q via %q", ev.App, ev.Source)

	if src, ok := s.store.Load(ev.App); ok {
		if s.restore(ctx, ev.App, src) {
			return ev.App
		}
	}

	cur, err := s.sources.Current()
	if err != nil {
		s.log.Warnf("get current input source for %q: %v", ev.App, err)
		return ev.App
	}

	s.log.Debugf("registering input source for %q as %q", ev.App, cur)
	s.store.Save(ev.App, cur)
	return ev.App
}

// restore announces src to the change stream before selecting it, so the
// system notification that follows the switch is seen as a duplicate.
func (s *Switcher) restore(ctx context.Context, app AppID, src InputSourceID) bool {
	select {
	case s.changes <- InputSourceChange{Source: src, Origin: OriginSwitcher}:
	case <-ctx.Done():
		return false
	}

	switched, err := s.sources.Select(src)
	switch {
	case err != nil:
		s.log.Warnf("restore input source %q for %q: %v", src, app, err)
		return false
	case !switched:
		s.log.Infof("input source %q for %q is not installed anymore", src, app)
		return false
	}

	s.log.Debugf("restored input source %q for %q", src, app)
	return true
}

func (s *Switcher) processChanges(ctx context.Context) error {
	var prevSrc InputSourceID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-s.changes:
			prevSrc = s.processChange(prevSrc, change)
		}
	}
}

func (s *Switcher) processChange(prevSrc InputSourceID, change InputSourceChange) InputSourceID {
	if change.Source == prevSrc {
		return prevSrc
	}
	if change.Origin == OriginSwitcher {
		return change.Source
	}

	app, ok := s.foreground.ForegroundApp()
	if !ok {
		s.log.Debugf("input source changed to %q but the current app is unknown", change.Source)
		return change.Source
	}

	s.log.Debugf("updating input source for %q to %q", app, change.Source)
	s.store.Save(app, change.Source)
	return change.Source
}
