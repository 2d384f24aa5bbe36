package ratelimiter

import "time"

// entry is one admission-control record: a token bucket keyed by
// address family and prefix. Entries chain within a bucket the way
// spec.md §3 describes ("singly-linked buckets"); next is nil at the
// tail.
type entry struct {
	next     *entry
	family   Family
	prefix   [8]byte // only prefix[:family.prefixLen()] is significant
	lastTime time.Time
	tokens   time.Duration
}

func (e *entry) matches(family Family, prefix [8]byte) bool {
	if e.family != family {
		return false
	}
	n := family.prefixLen()
	for i := 0; i < n; i++ {
		if e.prefix[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (e *entry) reset() {
	e.next = nil
	e.family = FamilyUnknown
	e.prefix = [8]byte{}
	e.lastTime = time.Time{}
	e.tokens = 0
}
