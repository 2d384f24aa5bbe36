/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2019 WireGuard LLC. All Rights Reserved.
 */

package wgcookie

import (
	"sync/atomic"
	"time"
)

// UnderLoadAfterTime is how long the device is considered "under load"
// after a single signal of load, grounded in the teacher's
// constants.UnderLoadAfterTime (the root device.go historically held
// `rate.underLoadUntil atomic.Value` with exactly this window).
const UnderLoadAfterTime = time.Second

// LoadTracker derives the caller-supplied "busy" flag spec.md §4.7
// treats as opaque input. It is optional: callers with their own CPU
// or queue-depth signal may ignore this and pass busy directly.
type LoadTracker struct {
	underLoadUntil atomic.Int64 // UnixNano deadline; 0 == never signaled
	now            func() time.Time
}

// NewLoadTracker returns a LoadTracker that is not under load until
// ReportLoad is called.
func NewLoadTracker() *LoadTracker {
	return &LoadTracker{now: time.Now}
}

// ReportLoad signals a load event (e.g. a dropped or queued handshake
// packet); the tracker reports IsUnderLoad for UnderLoadAfterTime from
// now.
func (l *LoadTracker) ReportLoad() {
	l.underLoadUntil.Store(l.now().Add(UnderLoadAfterTime).UnixNano())
}

// IsUnderLoad reports whether a load event was signaled within the
// last UnderLoadAfterTime.
func (l *LoadTracker) IsUnderLoad() bool {
	deadline := l.underLoadUntil.Load()
	return deadline != 0 && l.now().UnixNano() < deadline
}
