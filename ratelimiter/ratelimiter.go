package ratelimiter

import (
	"crypto/rand"
	"net/netip"
	"sync"
	"time"

	"github.com/dchest/siphash"

	"golang.zx2c4.com/wireguard-cookie/internal/pool"
)

// Ratelimiter is the sharded, SipHash-keyed token-bucket table
// described in spec.md §3 and §4.8. One table lock governs the table
// contents, the live-entry count, and GC callout scheduling, matching
// the "one lock governs the entire table" concurrency rule in §5.
type Ratelimiter struct {
	mu sync.Mutex

	secret   [32]byte // SipHash key material; see DESIGN.md on key size
	buckets  []*entry // len == Size, nil once closed
	tableNum int

	entries *pool.Bounded[entry]

	gcTimer   *time.Timer
	gcPending bool

	now func() time.Time
}

// New allocates and initializes a Ratelimiter: a fresh random secret,
// an empty bucket table, and a pool of at most SizeMax entries.
// Equivalent to spec.md §6 init's per-family limiter allocation.
func New() (*Ratelimiter, error) {
	r := &Ratelimiter{now: time.Now}
	if err := r.reinit(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Ratelimiter) reinit() error {
	if _, err := rand.Read(r.secret[:]); err != nil {
		return err
	}
	r.buckets = make([]*entry, Size)
	r.tableNum = 0
	r.entries = pool.New(SizeMax, func() *entry { return new(entry) })
	return nil
}

// Close stops the GC timer, evicts every entry, and releases the
// bucket array, all under the table lock — spec.md §4.8 "Deinit".
func (r *Ratelimiter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gcTimer != nil {
		r.gcTimer.Stop()
		r.gcTimer = nil
	}
	r.gcPending = false
	r.gcLocked(true)
	r.buckets = nil
}

// key computes the bucket-table lookup key: SipHash(secret, prefix).
// The caller masks it to a bucket index. The pack's only SipHash dependency
// (github.com/dchest/siphash) implements the standard SipHash-2-4
// construction rather than the 1-3 round count spec.md asks for; see
// DESIGN.md for why that substitution is made rather than hand-rolling
// a nonstandard round schedule.
func (r *Ratelimiter) key(prefix []byte) uint64 {
	h := siphash.New(r.secret[:16])
	h.Write(prefix)
	return h.Sum64()
}

func classify(addr netip.Addr) (family Family, prefix [8]byte) {
	addr = addr.Unmap()
	switch {
	case addr.Is4():
		b := addr.As4()
		copy(prefix[:], b[:])
		return FamilyV4, prefix
	case addr.Is6():
		b := addr.As16()
		copy(prefix[:], b[:8]) // top 8 bytes == /64
		return FamilyV6, prefix
	default:
		return FamilyUnknown, prefix
	}
}

// Allow implements spec.md §4.8's allow(address) algorithm: token
// bucket lookup/insert, accrual, and admission. It returns false for
// an unsupported address family, a rate-limited source, or exhaustion
// of the table/pool — spec.md collapses all three to "refused" at
// this layer; callers that need to distinguish "unsupported-family"
// use AllowErr, or check the family before reaching the limiter as the
// root Defense type does.
func (r *Ratelimiter) Allow(addr netip.Addr) bool {
	allowed, _ := r.AllowErr(addr)
	return allowed
}

// AllowErr is Allow with the unsupported-family case surfaced as
// ErrUnsupportedFamily instead of being folded into a plain false, for
// callers that want to distinguish it (spec.md §4.8 step 1).
func (r *Ratelimiter) AllowErr(addr netip.Addr) (bool, error) {
	family, prefix := classify(addr)
	if family == FamilyUnknown {
		return false, ErrUnsupportedFamily
	}
	bucketIdx := r.key(prefix[:family.prefixLen()]) & (Size - 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.buckets == nil {
		return false, nil // closed
	}

	for e := r.buckets[bucketIdx]; e != nil; e = e.next {
		if !e.matches(family, prefix) {
			continue
		}
		now := r.now()
		delta := now.Sub(e.lastTime)
		e.lastTime = now
		e.tokens += delta
		if e.tokens > TokenMax {
			e.tokens = TokenMax
		}
		if e.tokens >= InitiationCost {
			e.tokens -= InitiationCost
			return true, nil
		}
		return false, nil
	}

	// No match: admit a new entry if there is room.
	if r.tableNum >= SizeMax {
		return false, nil
	}
	e, ok := r.entries.Get()
	if !ok {
		return false, nil
	}
	e.reset()
	e.family = family
	e.prefix = prefix
	e.lastTime = r.now()
	e.tokens = TokenMax - InitiationCost

	e.next = r.buckets[bucketIdx]
	r.buckets[bucketIdx] = e
	r.tableNum++

	r.scheduleGCLocked()
	return true, nil
}

// scheduleGCLocked arms the GC timer if one isn't already pending.
// Must be called with mu held.
func (r *Ratelimiter) scheduleGCLocked() {
	if r.gcPending {
		return
	}
	r.gcPending = true
	r.gcTimer = time.AfterFunc(ElementTimeout, r.runGC)
}

// runGC is the timer callback. It re-enters the table lock itself, as
// the Design Notes require of whatever timer facility is used, since
// it races with concurrent Allow calls.
func (r *Ratelimiter) runGC() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gcPending = false
	if r.buckets == nil {
		return // closed while the timer was in flight
	}
	r.gcLocked(false)

	if r.tableNum > 0 {
		r.scheduleGCLocked()
	}
}

// gcLocked evicts entries idle for more than ElementTimeout (or every
// entry, if force is set). Must be called with mu held.
func (r *Ratelimiter) gcLocked(force bool) {
	now := r.now()
	for i := range r.buckets {
		var prev *entry
		e := r.buckets[i]
		for e != nil {
			next := e.next
			if force || now.Sub(e.lastTime) > ElementTimeout {
				if prev == nil {
					r.buckets[i] = next
				} else {
					prev.next = next
				}
				r.tableNum--
				r.entries.Put(e)
			} else {
				prev = e
			}
			e = next
		}
	}
}

// NumEntries reports the number of live entries (table_num in spec.md),
// used by tests to check the GC and capacity invariants.
func (r *Ratelimiter) NumEntries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tableNum
}
