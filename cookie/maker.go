package cookie

import (
	"crypto/rand"
	"sync"
	"time"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20poly1305"
)

// Maker is the per-remote-peer state an initiator holds: it computes
// outgoing MAC1/MAC2 and consumes encrypted cookie replies. Grounded
// on awenaw-wireguard-go/device/cookie.go's CookieGenerator.
type Maker struct {
	mu sync.RWMutex

	mac1Key    [blake2s.Size]byte
	encryptKey [chacha20poly1305.KeySize]byte

	cookie    [CookieSize]byte
	cookieSet time.Time

	mac1Valid bool
	lastMAC1  [MACSize]byte

	now func() time.Time
}

// NewMaker derives both keys from identity — the remote peer's static
// identity input, per spec.md §6 maker.init(input32).
func NewMaker(identity Identity) *Maker {
	m := &Maker{now: time.Now}
	m.mac1Key = deriveKey(labelMAC1, identity)
	m.encryptKey = deriveKey(labelCookie, identity)
	return m
}

// AddMacs computes {MAC1, MAC2} for the outgoing handshake buffer msg
// and writes them into its trailing 32 bytes, per spec.md §4.6. msg
// must already be sized for MAC1 and MAC2 at its tail; both are
// overwritten in place.
func (m *Maker) AddMacs(msg []byte) error {
	if len(msg) < 2*MACSize {
		return ErrMessageTooShort
	}
	startMAC1 := len(msg) - 2*MACSize
	startMAC2 := len(msg) - MACSize

	m.mu.Lock()
	defer m.mu.Unlock()

	got := mac1(&m.mac1Key, msg[:startMAC1])
	copy(msg[startMAC1:startMAC2], got[:])
	m.lastMAC1 = got
	m.mac1Valid = true

	if m.cookieSet.IsZero() || m.now().Sub(m.cookieSet) > maxCookieTrust {
		// Cookie absent or too close to the responder's secret
		// rotation to trust (spec.md §4.6 rationale) — zero MAC2.
		for i := startMAC2; i < len(msg); i++ {
			msg[i] = 0
		}
		return nil
	}

	got2 := mac2(&m.cookie, msg[:startMAC2])
	copy(msg[startMAC2:], got2[:])
	return nil
}

// ConsumePayload decrypts a cookie-reply's nonce/encrypted pair and
// stores the resulting cookie, per spec.md §4.5.
func (m *Maker) ConsumePayload(nonce [NonceSize]byte, encrypted [EncryptedCookieSize]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mac1Valid {
		return ErrStaleCookie
	}

	aead, err := chacha20poly1305.NewX(m.encryptKey[:])
	if err != nil {
		return err
	}

	var plain [CookieSize]byte
	if _, err := aead.Open(plain[:0], nonce[:], encrypted[:], m.lastMAC1[:]); err != nil {
		return ErrInvalidMAC
	}

	m.cookie = plain
	m.cookieSet = m.now()
	m.mac1Valid = false
	return nil
}
