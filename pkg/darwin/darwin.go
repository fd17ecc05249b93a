// Package darwin binds the macOS workspace, accessibility and text input
// source APIs. Notifications are delivered on the main run loop, which the
// main goroutine must drive with RunMainLoop.
package darwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rami3l/clavy/pkg/notification"
)

// Names posted on the center by ObserveWorkspace.
const (
	ApplicationActivated       = "NSWorkspaceDidActivateApplicationNotification"
	RunningApplicationsChanged = "ClavyRunningApplicationsChangedNotification"
	InputSourceChanged         = "ClavySelectedKeyboardInputSourceChangedNotification"
)

var (
	ErrAXPrivilegesNotDetected = errors.New("accessibility privileges not detected")
	ErrAlreadyObserving        = errors.New("workspace is already observed")
)

type AXError int

var axErrorNames = map[AXError]string{
	-25200: "failure",
	-25201: "illegal argument",
	-25202: "invalid UI element",
	-25203: "invalid UI element observer",
	-25204: "cannot complete",
	-25205: "attribute unsupported",
	-25206: "action unsupported",
	-25207: "notification unsupported",
	-25208: "not implemented",
	-25209: "notification already registered",
	-25210: "notification not registered",
	-25211: "API disabled",
	-25212: "no value",
	-25213: "parameterized attribute unsupported",
	-25214: "not enough precision",
}

func (e AXError) Error() string {
	if name, ok := axErrorNames[e]; ok {
		return fmt.Sprintf("accessibility error %d: %s", int(e), name)
	}
	return fmt.Sprintf("accessibility error %d", int(e))
}

func axError(code int) error {
	if code == 0 {
		return nil
	}
	return AXError(code)
}

type Poster interface {
	Post(name string, n notification.Notification)
}

// C callbacks cannot carry Go pointers, so handlers are looked up by token.
type callbacks struct {
	lock     sync.RWMutex
	next     uintptr
	handlers map[uintptr]func(kind string)
}

func newCallbacks() *callbacks {
	return &callbacks{handlers: make(map[uintptr]func(string))}
}

func (c *callbacks) add(fn func(kind string)) uintptr {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.next++
	c.handlers[c.next] = fn
	return c.next
}

func (c *callbacks) remove(token uintptr) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.handlers, token)
}

// call reports false when the token was removed in the meantime.
func (c *callbacks) call(token uintptr, kind string) bool {
	c.lock.RLock()
	fn, ok := c.handlers[token]
	c.lock.RUnlock()
	if !ok {
		return false
	}
	fn(kind)
	return true
}

var axCallbacks = newCallbacks()

type workspacePoster struct {
	lock   sync.RWMutex
	poster Poster
}

func (w *workspacePoster) set(p Poster) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.poster != nil {
		return ErrAlreadyObserving
	}
	w.poster = p
	return nil
}

func (w *workspacePoster) clear() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.poster = nil
}

func (w *workspacePoster) post(name string, n notification.Notification) {
	w.lock.RLock()
	p := w.poster
	w.lock.RUnlock()
	if p != nil {
		p.Post(name, n)
	}
}

var workspace = &workspacePoster{}
