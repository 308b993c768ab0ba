// Package threadcheck records which OS thread is the host's main thread and
// reports calls made from the wrong one.
//
// Checking is off until MarkCurrentAsMain is called. Until then EnsureMain and
// EnsureNotMain cost one atomic load and never report anything. Violations are
// advisory: they are passed to the Reporter and the call continues.
package threadcheck

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Reporter receives thread discipline violations.
type Reporter func(function, message string)

const (
	msgNotMain = "called outside of main thread"
	msgMain    = "called from main thread but should not have been"
)

var (
	enabled  atomic.Bool
	mainTID  atomic.Int64
	reporter atomic.Pointer[Reporter]

	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger used by the default reporter.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// This must be called before MarkCurrentAsMain.
func SetLogger(l *zap.Logger) {
	logger = l
}

// SetReporter replaces the violation reporter. A nil reporter restores the
// default, which logs a warning.
func SetReporter(r Reporter) {
	if r == nil {
		reporter.Store(nil)
		return
	}
	reporter.Store(&r)
}

// MarkCurrentAsMain locks the calling goroutine to its OS thread and records
// that thread as main. Only the first call has an effect; it reports whether
// this call did the marking.
func MarkCurrentAsMain() bool {
	runtime.LockOSThread()
	if !mainTID.CompareAndSwap(0, currentThreadID()) {
		runtime.UnlockOSThread()
		return false
	}
	enabled.Store(true)
	return true
}

// IsEnabled reports whether a main thread has been marked.
func IsEnabled() bool {
	return enabled.Load()
}

// IsMain reports whether the caller runs on the marked main thread. It is
// false while checking is disabled.
func IsMain() bool {
	if !enabled.Load() {
		return false
	}
	return currentThreadID() == mainTID.Load()
}

// EnsureMain reports a violation if function is running off the main thread.
func EnsureMain(function string) {
	if !enabled.Load() {
		return
	}
	if currentThreadID() != mainTID.Load() {
		report(function, msgNotMain)
	}
}

// EnsureNotMain reports a violation if function is running on the main
// thread, typically a realtime entry point.
func EnsureNotMain(function string) {
	if !enabled.Load() {
		return
	}
	if currentThreadID() == mainTID.Load() {
		report(function, msgMain)
	}
}

func report(function, message string) {
	if r := reporter.Load(); r != nil {
		(*r)(function, message)
		return
	}
	Logger().Warn("thread discipline violation",
		zap.String("func", function),
		zap.String("message", message))
}

// reset clears the marked thread. Tests only.
func reset() {
	enabled.Store(false)
	mainTID.Store(0)
	reporter.Store(nil)
}
