package ratelimiter

import "errors"

// ErrUnsupportedFamily is returned by AllowErr for an address that is
// neither a valid IPv4 nor a valid IPv6 address. Allow reports the same
// case as a plain false.
var ErrUnsupportedFamily = errors.New("ratelimiter: unsupported address family")
