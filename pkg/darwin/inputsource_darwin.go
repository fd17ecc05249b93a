//go:build darwin

package darwin

/*
#include <stdlib.h>
#include "clavy_darwin.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/rami3l/clavy/pkg/clavy"
)

var errNoInputSource = errors.New("no current keyboard input source")

// InputSources selects Text Input Sources by their identifier, such as
// com.apple.keylayout.US.
type InputSources struct{}

func (InputSources) Current() (clavy.InputSourceID, error) {
	id, ok := takeString(C.clavy_current_input_source())
	if !ok {
		return "", errNoInputSource
	}
	return clavy.InputSourceID(id), nil
}

// Select reports true when id is already active or was selected, and false
// when no such input source is installed.
func (s InputSources) Select(id clavy.InputSourceID) (bool, error) {
	if current, err := s.Current(); err == nil && current == id {
		return true, nil
	}

	cid := C.CString(string(id))
	defer C.free(unsafe.Pointer(cid))

	var status C.int
	found := C.clavy_select_input_source(cid, &status) == 1
	if status != 0 {
		return false, fmt.Errorf("select input source %s: OSStatus %d", id, int(status))
	}
	return found, nil
}
