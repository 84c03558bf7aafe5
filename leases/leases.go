// Package leases tracks which task owns which unit. Ownership is bounded by
// a TTL so a task that stops touching its units eventually lets them go.
package leases

import "sort"

// DefaultTTL is the lease length used when a mission does not set one.
const DefaultTTL = 8.0

// Lease is one ownership record. ExpiresAt is absolute simulation time.
type Lease struct {
	Owner     string
	Role      string
	ExpiresAt float64
}

func (l Lease) expired(now float64) bool { return now >= l.ExpiresAt }

// Ledger maps unit tags to leases. Each tag has at most one owner; expired
// entries are dropped before any query or claim observes them.
type Ledger struct {
	leases map[uint64]Lease
}

func New() *Ledger {
	return &Ledger{leases: make(map[uint64]Lease)}
}

// Reap drops every expired lease and returns the freed tags.
func (l *Ledger) Reap(now float64) []uint64 {
	var freed []uint64
	for tag, ls := range l.leases {
		if ls.expired(now) {
			delete(l.leases, tag)
			freed = append(freed, tag)
		}
	}
	sort.Slice(freed, func(i, j int) bool { return freed[i] < freed[j] })
	return freed
}

// lookup returns the live lease for tag, reaping it if it has expired.
func (l *Ledger) lookup(tag uint64, now float64) (Lease, bool) {
	ls, ok := l.leases[tag]
	if !ok {
		return Lease{}, false
	}
	if ls.expired(now) {
		delete(l.leases, tag)
		return Lease{}, false
	}
	return ls, true
}

// OwnerOf returns the task holding tag.
func (l *Ledger) OwnerOf(tag uint64, now float64) (string, bool) {
	ls, ok := l.lookup(tag, now)
	return ls.Owner, ok
}

// Get returns the full lease for tag.
func (l *Ledger) Get(tag uint64, now float64) (Lease, bool) {
	return l.lookup(tag, now)
}

// CanClaim reports whether tag is free.
func (l *Ledger) CanClaim(tag uint64, now float64) bool {
	_, held := l.lookup(tag, now)
	return !held
}

// Claim gives tag to owner until now+ttl. A tag held by another owner is
// refused unless force is set; re-claiming an owned tag refreshes it.
func (l *Ledger) Claim(owner string, tag uint64, role string, now, ttl float64, force bool) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cur, held := l.lookup(tag, now); held && cur.Owner != owner && !force {
		return false
	}
	l.leases[tag] = Lease{Owner: owner, Role: role, ExpiresAt: now + ttl}
	return true
}

// Touch extends owner's lease on tag. It is a no-op for non-owners.
func (l *Ledger) Touch(owner string, tag uint64, now, ttl float64) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cur, held := l.lookup(tag, now)
	if !held || cur.Owner != owner {
		return false
	}
	cur.ExpiresAt = now + ttl
	l.leases[tag] = cur
	return true
}

// Release drops a single lease if owner holds it.
func (l *Ledger) Release(owner string, tag uint64) bool {
	cur, ok := l.leases[tag]
	if !ok || cur.Owner != owner {
		return false
	}
	delete(l.leases, tag)
	return true
}

// ReleaseOwner drops every lease held by owner and returns the tags.
func (l *Ledger) ReleaseOwner(owner string) []uint64 {
	var freed []uint64
	for tag, ls := range l.leases {
		if ls.Owner == owner {
			delete(l.leases, tag)
			freed = append(freed, tag)
		}
	}
	sort.Slice(freed, func(i, j int) bool { return freed[i] < freed[j] })
	return freed
}

// Owned lists the live tags held by owner, sorted.
func (l *Ledger) Owned(owner string, now float64) []uint64 {
	var out []uint64
	for tag := range l.leases {
		if ls, ok := l.lookup(tag, now); ok && ls.Owner == owner {
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len counts stored leases, including any not yet reaped.
func (l *Ledger) Len() int { return len(l.leases) }

// View is the read-only surface tasks see.
type View interface {
	OwnerOf(tag uint64, now float64) (string, bool)
	CanClaim(tag uint64, now float64) bool
}
