package cookie

import "errors"

var (
	// ErrMessageTooShort is returned when a buffer is too short to
	// contain MAC1 and MAC2.
	ErrMessageTooShort = errors.New("cookie: message shorter than MAC1+MAC2")

	// ErrInvalidMAC is returned by Maker.ConsumePayload when the
	// cookie-reply AEAD tag check fails. The caller must drop the packet
	// silently (spec.md §7). A MAC1 mismatch is reported by CheckMAC1 as
	// false, not as this error.
	ErrInvalidMAC = errors.New("cookie: mac1 or cookie-reply tag mismatch")

	// ErrStaleCookie is returned by Maker.ConsumePayload when a cookie
	// reply arrives with no outstanding MAC1 to bind it to.
	ErrStaleCookie = errors.New("cookie: reply received without a pending mac1")
)
