// Package goroutine provides a panic-safe wrapper for background goroutines.
package goroutine

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2/log"
)

// SafeGo launches fn on a new goroutine with panic recovery. A panicking
// background task is logged with its stack trace instead of crashing the
// process; fire-and-forget fulfillment work must never take the server down.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("[%s] goroutine panicked: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}
