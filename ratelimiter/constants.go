/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2019 WireGuard LLC. All Rights Reserved.
 */

// Package ratelimiter implements the token-bucket, per-source-prefix
// admission controller the cookie checker consults while under load
// (spec.md §4.8). It is grounded in the teacher's own
// ratelimiter.Ratelimiter (map-based, single family-agnostic table via
// net/netip.Addr in awenaw-wireguard-go/ratelimiter/ratelimiter.go),
// generalized to the sharded SipHash bucket table, bounded entry pool,
// and explicit GC scheduling spec.md calls for in place of a Go map
// and a free-running ticker goroutine.
package ratelimiter

import "time"

const (
	// InitiationsPerSecond and InitiationsBurstable give the steady-state
	// admission rate and the size of the initial burst.
	InitiationsPerSecond = 20
	InitiationsBurstable = 5

	// InitiationCost is the token cost of a single admission, expressed
	// as a time.Duration so that token accrual is pure elapsed time
	// (spec.md §4.8 "Token representation" design note). Using
	// time.Duration (int64 nanoseconds) gives sub-millisecond
	// resolution natively, the unit the teacher's own Allow()
	// implementation already uses (entry.tokens += now.Sub(lastTime)).
	InitiationCost = time.Second / InitiationsPerSecond

	// TokenMax is the token bucket's capacity.
	TokenMax = InitiationCost * InitiationsBurstable

	// ElementTimeout is how long an entry may sit idle before GC evicts it.
	ElementTimeout = time.Second

	// Size is the number of hash-table buckets; must be a power of two
	// so bucket selection can mask instead of mod.
	Size = 8192

	// SizeMax is the hard cap on live entries across both address
	// families, shared by the single table (spec.md's system diagram
	// shows one Rate Limiter box serving v4+v6; see DESIGN.md).
	SizeMax = 65536
)

// Family distinguishes the two supported prefix widths.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyV4
	FamilyV6
)

// prefixLen returns the number of prefix bytes significant for family:
// the full 4-byte address for IPv4, the top 8 bytes (a /64) for IPv6.
func (f Family) prefixLen() int {
	switch f {
	case FamilyV4:
		return 4
	case FamilyV6:
		return 8
	default:
		return 0
	}
}
