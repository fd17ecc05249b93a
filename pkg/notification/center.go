package notification

import (
	"errors"
	"sync"
)

// Names posted by the window tracker on the local center.
const (
	FocusedWindowChanged = "ClavyFocusedWindowChangedNotification"
	AppHidden            = "ClavyAppHiddenNotification"
)

var ErrNilHandler = errors.New("nil notification handler")

// Notification is the payload delivered to handlers. PID is 0 and App is
// empty when the underlying event does not carry them.
type Notification struct {
	Name string
	PID  int
	App  string
}

type Handler func(Notification)

// Handle deregisters a subscription. Close is safe to call more than once.
type Handle interface {
	Close()
}

type Center struct {
	lock   sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
}

func NewCenter() *Center {
	return &Center{
		subs: make(map[string]map[uint64]*subscription),
	}
}

type subscription struct {
	center  *Center
	name    string
	id      uint64
	handler Handler

	// held shared while the handler runs, exclusively while closing
	lock   sync.RWMutex
	closed bool
	once   sync.Once
}

func (c *Center) Register(name string, handler Handler) (Handle, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.nextID++
	sub := &subscription{
		center:  c,
		name:    name,
		id:      c.nextID,
		handler: handler,
	}

	if c.subs[name] == nil {
		c.subs[name] = make(map[uint64]*subscription)
	}
	c.subs[name][sub.id] = sub

	return sub, nil
}

// Post delivers n to every handler registered under name, synchronously on
// the calling goroutine.
func (c *Center) Post(name string, n Notification) {
	n.Name = name

	c.lock.RLock()
	subs := make([]*subscription, 0, len(c.subs[name]))
	for _, sub := range c.subs[name] {
		subs = append(subs, sub)
	}
	c.lock.RUnlock()

	for _, sub := range subs {
		sub.deliver(n)
	}
}

// Len reports the number of live subscriptions under name.
func (c *Center) Len(name string) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.subs[name])
}

func (s *subscription) deliver(n Notification) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return
	}
	s.handler(n)
}

// Close waits for in-flight deliveries; a handler must not close its own
// subscription.
func (s *subscription) Close() {
	s.once.Do(func() {
		s.lock.Lock()
		s.closed = true
		s.lock.Unlock()

		s.center.lock.Lock()
		defer s.center.lock.Unlock()

		delete(s.center.subs[s.name], s.id)
		if len(s.center.subs[s.name]) == 0 {
			delete(s.center.subs, s.name)
		}
	})
}
