//go:build darwin

package darwin

/*
#include "clavy_darwin.h"
*/
import "C"

import (
	"context"
	"time"
)

// kCFRunLoopRunFinished
const runLoopFinished = 1

// RunMainLoop drives the main run loop until ctx is done. It must be called
// from the main goroutine with the OS thread locked.
func RunMainLoop(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { C.clavy_stop_main_loop() })
	defer stop()

	for ctx.Err() == nil {
		if C.clavy_run_main_loop_for(1) == runLoopFinished {
			// nothing scheduled yet
			time.Sleep(100 * time.Millisecond)
		}
	}
}
