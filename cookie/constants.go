/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2019 WireGuard LLC. All Rights Reserved.
 */

// Package cookie implements the WireGuard cookie subsystem: the
// MAC1/MAC2 message-authentication pair carried on every handshake
// message, and the encrypted cookie challenge a responder under load
// hands back to force an initiator to prove reachability before the
// responder spends CPU on the full handshake.
//
// Checker is held by the responder; Maker is held per-peer by the
// initiator. Both are grounded on awenaw-wireguard-go's
// device/cookie.go (CookieChecker/CookieGenerator), generalized to take the identity
// input and peer address as explicit parameters instead of reading
// them off a *Peer/*Device.
package cookie

import (
	"time"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// MACSize is the length, in bytes, of MAC1 and MAC2.
	MACSize = blake2s.Size128

	// CookieSize is the length of a plaintext cookie.
	CookieSize = blake2s.Size128

	// NonceSize is the XChaCha20-Poly1305 nonce length used to encrypt
	// cookie replies.
	NonceSize = chacha20poly1305.NonceSizeX

	// EncryptedCookieSize is the length of an encrypted cookie:
	// CookieSize plaintext plus the AEAD tag.
	EncryptedCookieSize = CookieSize + chacha20poly1305.Overhead

	// IdentitySize is the length of the derivation input (a static
	// public key, in the enclosing handshake protocol).
	IdentitySize = blake2s.Size

	// SecretSize is the length of the responder's rotating cookie
	// secret.
	SecretSize = blake2s.Size
)

// secretMaxAge is COOKIE_SECRET_MAX_AGE: a cookie secret is never used
// to build a cookie once it is older than this.
const secretMaxAge = 120 * time.Second

// secretLatency is COOKIE_SECRET_LATENCY: the safety margin an
// initiator subtracts from secretMaxAge before it stops trusting its
// cached cookie, so the cookie can't expire mid-flight between the
// initiator computing MAC2 and the responder checking it.
const secretLatency = 5 * time.Second

// maxCookieTrust is the age past which a Maker's cached cookie is
// downgraded to a zero MAC2 rather than used (spec.md §4.6).
const maxCookieTrust = secretMaxAge - secretLatency

// Derivation labels, exactly 8 ASCII bytes each (spec.md §4.1).
const (
	labelMAC1   = "mac1----"
	labelCookie = "cookie--"
)

// Identity is the 32-byte derivation input shared by a Maker and the
// Checker it is paired with — in the enclosing protocol, the
// responder's static public key.
type Identity [IdentitySize]byte
