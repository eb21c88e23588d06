// Package monitoring holds the diagnostic logger shared by the capture,
// snapshot and broadcast packages.
package monitoring

import (
	"log"
	"sync/atomic"
)

// LogFunc is the signature of a printf-style diagnostic logger.
type LogFunc func(format string, v ...interface{})

var current atomic.Pointer[LogFunc]

func init() {
	SetLogger(log.Printf)
}

// Logf writes through the installed logger. It defaults to log.Printf and
// is safe to call while another goroutine runs SetLogger.
func Logf(format string, v ...interface{}) {
	(*current.Load())(format, v...)
}

// Logger returns the installed logger, typically so it can be restored later.
func Logger() LogFunc {
	return *current.Load()
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	lf := LogFunc(f)
	current.Store(&lf)
}

// Component returns a logger that tags each line with "[name] ". The
// returned func looks the logger up on every call so a later SetLogger applies.
func Component(name string) func(format string, v ...interface{}) {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
