package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/notification"
	"go.uber.org/zap"
)

// Native notification kinds an observer subscribes to.
const (
	KindFocusedWindowChanged = "AXFocusedWindowChanged"
	KindApplicationHidden    = "AXApplicationHidden"
)

type Process struct {
	PID int
	App clavy.AppID
}

type ProcessLister interface {
	RunningProcesses() ([]Process, error)
	// WindowedPIDs returns the pids owning at least one window.
	WindowedPIDs() (map[int]struct{}, error)
}

type Observer interface {
	Subscribe(kind string) error
	Start()
	// Close must be safe to call on an observer whose process is gone.
	Close()
}

type ObserverFactory interface {
	Create(pid int, handler func(kind string)) (Observer, error)
}

type Poster interface {
	Post(name string, n notification.Notification)
}

type Tracker struct {
	processes ProcessLister
	factory   ObserverFactory
	poster    Poster
	log       *zap.SugaredLogger

	kick chan struct{}

	// serializes recomputations; never held by readers
	recompute sync.Mutex

	lock      sync.Mutex
	policy    Policy
	observers map[int]Observer
}

func New(processes ProcessLister, factory ObserverFactory, poster Poster, policy Policy, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		processes: processes,
		factory:   factory,
		poster:    poster,
		log:       log,
		policy:    policy,
		observers: make(map[int]Observer),
		kick:      make(chan struct{}, 1),
	}
}

// Trigger requests a recomputation from Run without blocking. Requests
// arriving while one is pending are coalesced.
func (t *Tracker) Trigger() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Watch triggers a recomputation whenever name is posted on src.
func (t *Tracker) Watch(src clavy.NotificationSource, name string) (notification.Handle, error) {
	return src.Register(name, func(notification.Notification) {
		t.Trigger()
	})
}

// Run recomputes once, then on every trigger until ctx is done. Observers
// are torn down on return.
func (t *Tracker) Run(ctx context.Context) error {
	defer t.Close()

	if err := t.Recompute(); err != nil {
		t.log.Warnf("recompute observed processes: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.kick:
			if err := t.Recompute(); err != nil {
				t.log.Warnf("recompute observed processes: %v", err)
			}
		}
	}
}

func (t *Tracker) SetPolicy(policy Policy) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.policy = policy
}

func (t *Tracker) Policy() Policy {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.policy
}

// Observed returns the pids currently observed.
func (t *Tracker) Observed() map[int]struct{} {
	t.lock.Lock()
	defer t.lock.Unlock()

	out := make(map[int]struct{}, len(t.observers))
	for pid := range t.observers {
		out[pid] = struct{}{}
	}
	return out
}

func (t *Tracker) target() (map[int]struct{}, error) {
	running, err := t.processes.RunningProcesses()
	if err != nil {
		return nil, fmt.Errorf("list running processes: %w", err)
	}

	windowed, err := t.processes.WindowedPIDs()
	if err != nil {
		return nil, fmt.Errorf("list windowed processes: %w", err)
	}

	return t.Policy().Target(running, windowed), nil
}

// Recompute brings the observed set in line with the running processes.
func (t *Tracker) Recompute() error {
	t.recompute.Lock()
	defer t.recompute.Unlock()

	target, err := t.target()
	if err != nil {
		return err
	}

	t.lock.Lock()
	var removed []Observer
	for pid, obs := range t.observers {
		if _, ok := target[pid]; !ok {
			t.log.Debugf("removing observer for pid %d", pid)
			removed = append(removed, obs)
			delete(t.observers, pid)
		}
	}
	var added []int
	for pid := range target {
		if _, ok := t.observers[pid]; !ok {
			added = append(added, pid)
		}
	}
	t.lock.Unlock()

	for _, obs := range removed {
		obs.Close()
	}

	for _, pid := range added {
		obs, err := t.observe(pid)
		if err != nil {
			t.log.Debugf("failed to create observer for pid %d: %v", pid, err)
			continue
		}

		t.lock.Lock()
		t.observers[pid] = obs
		t.lock.Unlock()
		t.log.Debugf("observing pid %d", pid)
	}

	return nil
}

func (t *Tracker) observe(pid int) (Observer, error) {
	obs, err := t.factory.Create(pid, func(kind string) {
		t.forward(pid, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("create observer: %w", err)
	}

	for _, kind := range []string{KindFocusedWindowChanged, KindApplicationHidden} {
		if err := obs.Subscribe(kind); err != nil {
			obs.Close()
			return nil, fmt.Errorf("subscribe %s: %w", kind, err)
		}
	}

	obs.Start()
	return obs, nil
}

func (t *Tracker) forward(pid int, kind string) {
	var name string
	switch kind {
	case KindFocusedWindowChanged:
		name = notification.FocusedWindowChanged
	case KindApplicationHidden:
		name = notification.AppHidden
	default:
		t.log.Debugf("unexpected notification %q from pid %d", kind, pid)
		return
	}

	t.poster.Post(name, notification.Notification{PID: pid})
}

// Close tears down every observer.
func (t *Tracker) Close() error {
	t.recompute.Lock()
	defer t.recompute.Unlock()

	t.lock.Lock()
	observers := t.observers
	t.observers = make(map[int]Observer)
	t.lock.Unlock()

	for _, obs := range observers {
		obs.Close()
	}
	return nil
}
