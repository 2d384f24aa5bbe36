/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2019 WireGuard LLC. All Rights Reserved.
 */

// Package wgcookie wires the cookie and ratelimiter packages together
// into the single context object Design Notes §9 of spec.md calls for
// ("a reimplementation may encapsulate [the process-wide rate
// limiters] in a single context object and pass it explicitly"),
// rather than the package-level singletons the original C
// implementation used.
//
// Everything outside this subsystem — the handshake state machine,
// packet parsing, socket I/O, peer routing, and persistence — is an
// external collaborator per spec.md §1 and is not implemented here.
package wgcookie

import (
	"net/netip"

	"golang.zx2c4.com/wireguard-cookie/cookie"
	"golang.zx2c4.com/wireguard-cookie/ratelimiter"
)

// Verdict is the outcome of ValidateMACs, spec.md §4.7/§7. Unlike a
// plain error, CookieRequired is a normal instruction to the caller
// ("send a cookie reply"), not a failure, so it is modeled as a
// distinguished value rather than folded into the error return.
type Verdict int

const (
	// Allowed means the packet may proceed to full handshake processing.
	Allowed Verdict = iota
	// Invalid means MAC1 did not match; drop the packet silently.
	Invalid
	// CookieRequired means MAC2 did not match while busy; reply with
	// an encrypted cookie challenge (Defense.CreatePayload).
	CookieRequired
	// Refused means the rate limiter rejected the source; drop.
	Refused
	// UnsupportedFamily means the source address is neither IPv4 nor
	// IPv6; drop.
	UnsupportedFamily
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Invalid:
		return "invalid"
	case CookieRequired:
		return "cookie-required"
	case Refused:
		return "refused"
	case UnsupportedFamily:
		return "unsupported-family"
	default:
		return "unknown"
	}
}

// Defense is the responder-side context object: a Checker plus the
// shared rate limiter it consults under load. One Defense exists per
// local static identity; see spec.md §3 "Cookie checker ... Lifecycle:
// created at process start ... destroyed at teardown."
type Defense struct {
	checker *cookie.Checker
	limiter *ratelimiter.Ratelimiter
	log     Logger
}

// New allocates the rate-limiter table/pool and a zeroed Checker,
// matching spec.md §6's top-level init. log may be nil.
func New(log Logger) (*Defense, error) {
	limiter, err := ratelimiter.New()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Defense{
		checker: cookie.NewChecker(),
		limiter: limiter,
		log:     log,
	}, nil
}

// Deinit tears down the rate limiter, matching spec.md §6's top-level
// deinit. The Checker itself holds no resources beyond memory and
// needs no explicit teardown.
func (d *Defense) Deinit() {
	d.limiter.Close()
}

// SetIdentity (re)derives the checker's MAC1/cookie keys from the
// local static identity. Pass nil to zero them.
func (d *Defense) SetIdentity(identity *cookie.Identity) {
	d.checker.SetIdentity(identity)
}

// CreatePayload produces an encrypted cookie-reply payload for addr,
// bound to the initiator's MAC1 (spec.md §4.4).
func (d *Defense) CreatePayload(mac1 [cookie.MACSize]byte, addr netip.AddrPort) (nonce [cookie.NonceSize]byte, encrypted [cookie.EncryptedCookieSize]byte, err error) {
	return d.checker.CreatePayload(mac1, addr)
}

// ValidateMACs implements spec.md §4.7 end to end: MAC1 check, the
// not-busy fast path, MAC2/cookie verification while busy, and the
// rate-limiter consult. addr family is resolved before MAC2 is even
// attempted — the Open Question in spec.md §9 about surfacing
// unsupported-family earlier is resolved in favor of "earlier"; see
// DESIGN.md.
func (d *Defense) ValidateMACs(msg []byte, busy bool, addr netip.AddrPort) (Verdict, error) {
	ok, err := d.checker.CheckMAC1(msg)
	if err != nil {
		return Invalid, err
	}
	if !ok {
		return Invalid, nil
	}
	if !busy {
		return Allowed, nil
	}

	a := addr.Addr().Unmap()
	if !a.Is4() && !a.Is6() {
		return UnsupportedFamily, nil
	}

	ok, err = d.checker.CheckMAC2(msg, addr)
	if err != nil {
		return Invalid, err
	}
	if !ok {
		return CookieRequired, nil
	}

	if !d.limiter.Allow(a) {
		d.log.Debugf("wgcookie: refused %s under load", addr)
		return Refused, nil
	}
	return Allowed, nil
}
