package clavy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rami3l/clavy/pkg/notification"
	"go.uber.org/zap"
)

type ActivationSink interface {
	Activated(source string, app AppID)
}

type InputSourceSink interface {
	InputSourceChanged(src InputSourceID)
}

// Resolution extracts the application identifier from a notification.
type Resolution func(n notification.Notification) (AppID, bool)

// FromPID resolves the pid carried by the notification.
func FromPID(lookup AppLookup) Resolution {
	return func(n notification.Notification) (AppID, bool) {
		if n.PID <= 0 {
			return "", false
		}
		return lookup.AppForPID(n.PID)
	}
}

// FromPayload uses the identifier carried by the notification itself.
func FromPayload() Resolution {
	return func(n notification.Notification) (AppID, bool) {
		return AppID(n.App), n.App != ""
	}
}

// FromForeground ignores the payload and asks for the current foreground app.
func FromForeground(resolver ForegroundResolver) Resolution {
	return func(notification.Notification) (AppID, bool) {
		return resolver.ForegroundApp()
	}
}

// Correlator turns notifications from several sources into events on the
// switcher's queues. Handlers resolve and enqueue only.
type Correlator struct {
	activations ActivationSink
	changes     InputSourceSink
	log         *zap.SugaredLogger

	lock    sync.Mutex
	handles []notification.Handle
}

func NewCorrelator(activations ActivationSink, changes InputSourceSink, log *zap.SugaredLogger) *Correlator {
	return &Correlator{
		activations: activations,
		changes:     changes,
		log:         log,
	}
}

func (c *Correlator) AttachActivation(src NotificationSource, name string, resolve Resolution) error {
	handle, err := src.Register(name, func(n notification.Notification) {
		app, ok := resolve(n)
		if !ok || app == "" {
			c.log.Debugf("dropping %q: failed to resolve app (pid %d)", n.Name, n.PID)
			return
		}
		c.activations.Activated(n.Name, app)
	})
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}

	c.keep(handle)
	return nil
}

// AttachInputSource reads the current input source whenever name is posted.
func (c *Correlator) AttachInputSource(src NotificationSource, name string, sources InputSources) error {
	handle, err := src.Register(name, func(n notification.Notification) {
		cur, err := sources.Current()
		if err != nil {
			c.log.Debugf("dropping %q: get current input source: %v", n.Name, err)
			return
		}
		c.changes.InputSourceChanged(cur)
	})
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}

	c.keep(handle)
	return nil
}

func (c *Correlator) keep(handle notification.Handle) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.handles = append(c.handles, handle)
}

// Close deregisters every handler attached so far.
func (c *Correlator) Close() error {
	c.lock.Lock()
	handles := c.handles
	c.handles = nil
	c.lock.Unlock()

	for _, h := range handles {
		h.Close()
	}
	return nil
}

var errNoSources = errors.New("no notification sources attached")

// Producer describes one activation feed.
type Producer struct {
	Source  NotificationSource
	Name    string
	Resolve Resolution
}

func (c *Correlator) AttachAll(producers []Producer) error {
	if len(producers) == 0 {
		return errNoSources
	}
	for _, p := range producers {
		if err := c.AttachActivation(p.Source, p.Name, p.Resolve); err != nil {
			return err
		}
	}
	return nil
}
