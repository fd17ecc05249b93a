//go:build darwin

package darwin

/*
#include <stdlib.h>
#include "clavy_darwin.h"
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/rami3l/clavy/pkg/tracker"
)

// HasAXPrivileges optionally prompts the user to grant them.
func HasAXPrivileges(prompt bool) bool {
	return bool(C.clavy_has_ax_privileges(C.bool(prompt)))
}

//export goAXNotification
func goAXNotification(token C.uintptr_t, kind *C.char) {
	axCallbacks.call(uintptr(token), C.GoString(kind))
}

// ObserverFactory creates accessibility observers scheduled on the main run
// loop.
type ObserverFactory struct{}

func (ObserverFactory) Create(pid int, handler func(kind string)) (tracker.Observer, error) {
	token := axCallbacks.add(handler)

	var raw *C.clavy_ax_observer
	if err := axError(int(C.clavy_ax_observer_create(C.int(pid), C.uintptr_t(token), &raw))); err != nil {
		axCallbacks.remove(token)
		return nil, fmt.Errorf("create observer for pid %d: %w", pid, err)
	}

	return &axObserver{raw: raw, token: token}, nil
}

type axObserver struct {
	raw   *C.clavy_ax_observer
	token uintptr
	once  sync.Once
}

func (o *axObserver) Subscribe(kind string) error {
	ckind := C.CString(kind)
	defer C.free(unsafe.Pointer(ckind))

	if err := axError(int(C.clavy_ax_observer_subscribe(o.raw, ckind))); err != nil {
		return fmt.Errorf("subscribe %s: %w", kind, err)
	}
	return nil
}

func (o *axObserver) Start() {
	C.clavy_ax_observer_start(o.raw)
}

func (o *axObserver) Close() {
	o.once.Do(func() {
		axCallbacks.remove(o.token)
		C.clavy_ax_observer_close(o.raw)
		o.raw = nil
	})
}
