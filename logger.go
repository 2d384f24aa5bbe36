/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2020 WireGuard LLC. All Rights Reserved.
 */

package wgcookie

import (
	"io"
	"log"
	"os"
)

// Logger is the leveled logging interface the teacher's device
// package defines in device/logger.go. Nothing in cookie/ or
// ratelimiter/ takes a Logger — spec.md §7 mandates no logging at
// that layer — but Defense accepts one optionally and reports
// rate-limit refusals to it at debug level, the way device.go reports
// handshake events. Cookie-secret rotations happen inside the Checker
// and are not logged.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{}) {}

// basicLogger is a minimal stdlib-only Logger, adapted from the
// teacher's device.NewLogger for callers that want timestamped output
// without pulling in their own logging stack.
type basicLogger struct {
	debug *log.Logger
	err   *log.Logger
}

// NewBasicLogger returns a Logger that writes debug lines to debug
// (pass io.Discard to silence them) and error lines to stderr.
func NewBasicLogger(debug io.Writer, prepend string) *basicLogger {
	if debug == nil {
		debug = os.Stdout
	}
	return &basicLogger{
		debug: log.New(debug, "DEBUG: "+prepend, log.Ldate|log.Ltime),
		err:   log.New(os.Stderr, "ERROR: "+prepend, log.Ldate|log.Ltime),
	}
}

func (l *basicLogger) Debugf(format string, args ...interface{}) {
	l.debug.Printf(format, args...)
}

func (l *basicLogger) Errorf(format string, args ...interface{}) {
	l.err.Printf(format, args...)
}
