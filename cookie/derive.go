package cookie

import "golang.org/x/crypto/blake2s"

// deriveKey implements spec.md §4.1: K = BLAKE2s-256(label ∥ input),
// unkeyed, no personalization or salt. Used to derive both mac1Key and
// the cookie AEAD key for both Maker and Checker.
func deriveKey(label string, identity Identity) (key [blake2s.Size]byte) {
	hash, _ := blake2s.New256(nil)
	hash.Write([]byte(label))
	hash.Write(identity[:])
	hash.Sum(key[:0])
	return key
}

// mac1 computes keyed-BLAKE2s(key=mac1Key, out=16, data=buf), spec.md §4.2.
func mac1(mac1Key *[blake2s.Size]byte, buf []byte) (out [MACSize]byte) {
	h, _ := blake2s.New128(mac1Key[:])
	h.Write(buf)
	h.Sum(out[:0])
	return out
}

// mac2 computes keyed-BLAKE2s(key=cookie, out=16, data=buf∥mac1), spec.md §4.2.
// mac1 must already have been appended conceptually; callers pass the
// buffer that precedes MAC2 on the wire (which already ends in MAC1).
func mac2(cookieKey *[CookieSize]byte, bufIncludingMAC1 []byte) (out [MACSize]byte) {
	h, _ := blake2s.New128(cookieKey[:])
	h.Write(bufIncludingMAC1)
	h.Sum(out[:0])
	return out
}
