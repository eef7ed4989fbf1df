// Package panics supplies the goroutine-wrapper idiom every long-running
// flow and worker in this repo starts through: a panic is logged with its
// stack trace under the caller's subsystem tag and the process exits
// cleanly rather than crashing silently mid-write. Adapted from
// kaspad's util/panics package, swapped onto this repo's own logger
// package since kaspad's logs.Logger (and its Backend().Close())
// belongs to a sibling package this repo does not carry (see DESIGN.md).
package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/tensorchain/tensorchain/logger"
)

// HandlePanic recovers a panic, logs it along with the stack trace
// captured at goroutine start, and exits the process. Call it deferred at
// the top of any goroutine that must not take the process down silently.
func HandlePanic(log *logger.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	panicHandlerDone := make(chan struct{})
	go func() {
		log.Criticalf("Fatal error: %+v", err)
		if goroutineStackTrace != nil {
			log.Criticalf("Goroutine stack trace: %s", goroutineStackTrace)
		}
		log.Criticalf("Stack trace: %s", debug.Stack())
		logger.Close()
		close(panicHandlerDone)
	}()

	const panicHandlerTimeout = 5 * time.Second
	select {
	case <-time.After(panicHandlerTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't handle a fatal error. Exiting...")
	case <-panicHandlerDone:
	}
	log.Criticalf("Exiting")
	os.Exit(1)
}

// GoroutineWrapperFunc returns a spawn helper that starts f in a new
// goroutine guarded by HandlePanic, tagged with log's subsystem.
func GoroutineWrapperFunc(log *logger.Logger) func(func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}

// AfterFuncWrapperFunc returns a time.AfterFunc wrapper whose callback is
// guarded by HandlePanic the same way GoroutineWrapperFunc's is.
func AfterFuncWrapperFunc(log *logger.Logger) func(d time.Duration, f func()) *time.Timer {
	return func(d time.Duration, f func()) *time.Timer {
		stackTrace := debug.Stack()
		return time.AfterFunc(d, func() {
			defer HandlePanic(log, stackTrace)
			f()
		})
	}
}

// Exit logs reason, flushes the log backend, and exits the process. Used
// for deliberate shutdowns (bad config, fatal startup error) that are not
// panics but still need the same clean-exit path.
func Exit(log *logger.Logger, reason string) {
	exitHandlerDone := make(chan struct{})
	go func() {
		log.Criticalf("Exiting: %s", reason)
		logger.Close()
		close(exitHandlerDone)
	}()

	const exitHandlerTimeout = 5 * time.Second
	select {
	case <-time.After(exitHandlerTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't exit gracefully.")
	case <-exitHandlerDone:
	}
	os.Exit(1)
}
