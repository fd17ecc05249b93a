//go:build darwin

package darwin

/*
#cgo CFLAGS: -Wno-deprecated-declarations
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework Carbon -framework Foundation
#include <stdlib.h>
#include "clavy_darwin.h"
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/notification"
	"github.com/rami3l/clavy/pkg/tracker"
)

var errCopyWindowInfo = errors.New("copy window info")

// ObserveWorkspace posts app activations, input source changes and changes
// of the running application list on p until stop is called.
func ObserveWorkspace(p Poster) (stop func(), err error) {
	if err := workspace.set(p); err != nil {
		return nil, err
	}
	C.clavy_start_workspace_observers()

	return func() {
		C.clavy_stop_workspace_observers()
		workspace.clear()
	}, nil
}

//export goApplicationActivated
func goApplicationActivated(pid C.int, bundleID *C.char) {
	workspace.post(ApplicationActivated, notification.Notification{
		PID: int(pid),
		App: C.GoString(bundleID),
	})
}

//export goRunningApplicationsChanged
func goRunningApplicationsChanged() {
	workspace.post(RunningApplicationsChanged, notification.Notification{})
}

//export goInputSourceChanged
func goInputSourceChanged() {
	workspace.post(InputSourceChanged, notification.Notification{})
}

func takeString(s *C.char) (string, bool) {
	if s == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(s))
	return C.GoString(s), true
}

// Workspace answers questions about running applications.
type Workspace struct{}

func (Workspace) AppForPID(pid int) (clavy.AppID, bool) {
	id, ok := takeString(C.clavy_bundle_id_for_pid(C.int(pid)))
	return clavy.AppID(id), ok && id != ""
}

// FocusedApp asks the accessibility API, which also sees floating panels
// such as Spotlight.
func (w Workspace) FocusedApp() (clavy.AppID, bool) {
	var pid C.int
	if code := C.clavy_focused_pid(&pid); code != 0 {
		return "", false
	}
	return w.AppForPID(int(pid))
}

// FrontmostApp ignores floating panels.
func (Workspace) FrontmostApp() (clavy.AppID, bool) {
	id, ok := takeString(C.clavy_frontmost_bundle_id())
	return clavy.AppID(id), ok && id != ""
}

// ForegroundApp prefers the accessibility API and falls back to the
// frontmost application.
func (w Workspace) ForegroundApp() (clavy.AppID, bool) {
	return clavy.FirstOf(
		clavy.ResolverFunc(w.FocusedApp),
		clavy.ResolverFunc(w.FrontmostApp),
	).ForegroundApp()
}

func (Workspace) RunningProcesses() ([]tracker.Process, error) {
	var apps *C.clavy_app
	n := int(C.clavy_running_apps(&apps))
	defer C.clavy_free_apps(apps, C.int(n))

	out := make([]tracker.Process, 0, n)
	for _, app := range unsafe.Slice(apps, n) {
		out = append(out, tracker.Process{
			PID: int(app.pid),
			App: clavy.AppID(C.GoString(app.bundle_id)),
		})
	}
	return out, nil
}

func (Workspace) WindowedPIDs() (map[int]struct{}, error) {
	var pids *C.int
	n := int(C.clavy_windowed_pids(&pids))
	if n < 0 {
		return nil, errCopyWindowInfo
	}
	defer C.free(unsafe.Pointer(pids))

	out := make(map[int]struct{}, n)
	for _, pid := range unsafe.Slice(pids, n) {
		out[int(pid)] = struct{}{}
	}
	return out, nil
}
