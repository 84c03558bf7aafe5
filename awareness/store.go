// Package awareness is the engine's persistent belief memory: a map from
// structured keys to values with optional time-to-live.
package awareness

import (
	"reflect"
	"sort"
	"strings"

	"github.com/nstehr/ego/audit"
)

// Key is a path of string segments, e.g. K("enemy", "opening", "kind").
// Distinct segment lists always give distinct keys.
type Key string

var (
	segmentEscaper   = strings.NewReplacer("%", "%25", "/", "%2F")
	segmentUnescaper = strings.NewReplacer("%2F", "/", "%25", "%")
)

// K joins path segments into a Key. Separators inside a segment are
// escaped.
func K(parts ...string) Key {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = segmentEscaper.Replace(p)
	}
	return Key(strings.Join(esc, "/"))
}

// Parts returns the segments K was given.
func (k Key) Parts() []string {
	parts := strings.Split(string(k), "/")
	for i, p := range parts {
		parts[i] = segmentUnescaper.Replace(p)
	}
	return parts
}

// Fact is a pending write. TTL <= 0 makes the entry permanent until
// overwritten.
type Fact struct {
	Key   Key
	Value any
	TTL   float64
}

type entry struct {
	value     any
	setAt     float64
	expiresAt float64
	permanent bool
}

func (e entry) live(now float64) bool {
	return e.permanent || now < e.expiresAt
}

// Store owns every belief. It is touched only from the tick goroutine.
type Store struct {
	entries map[Key]entry
	events  *audit.Emitter
}

// NewStore creates an empty store. events may be nil.
func NewStore(events *audit.Emitter) *Store {
	return &Store{entries: make(map[Key]entry), events: events}
}

// Set writes value under k at time now. An entry written at t0 with ttl τ
// reads back for now in [t0, t0+τ) and is absent from t0+τ on.
func (s *Store) Set(k Key, value any, now, ttl float64) {
	prev, had := s.entries[k]
	e := entry{value: value, setAt: now}
	if ttl <= 0 {
		e.permanent = true
	} else {
		e.expiresAt = now + ttl
	}
	s.entries[k] = e

	if !had || !prev.live(now) || !reflect.DeepEqual(prev.value, value) {
		s.events.Emit("belief_set", map[string]any{
			"key":   string(k),
			"value": value,
			"ttl":   ttl,
		})
	}
}

// Apply writes a batch of facts, as returned by tasks.
func (s *Store) Apply(facts []Fact, now float64) {
	for _, f := range facts {
		s.Set(f.Key, f.Value, now, f.TTL)
	}
}

// Get returns the live value for k.
func (s *Store) Get(k Key, now float64) (any, bool) {
	e, ok := s.entries[k]
	if !ok || !e.live(now) {
		return nil, false
	}
	return e.value, true
}

// GetOr returns the live value for k or def.
func (s *Store) GetOr(k Key, now float64, def any) any {
	if v, ok := s.Get(k, now); ok {
		return v
	}
	return def
}

func (s *Store) Delete(k Key) {
	delete(s.entries, k)
}

// Prune drops expired entries and reports how many were removed.
func (s *Store) Prune(now float64) int {
	n := 0
	for k, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len counts stored entries, expired ones included until pruned.
func (s *Store) Len() int { return len(s.entries) }

// Snapshot returns every live entry keyed by its string form.
func (s *Store) Snapshot(now float64) map[string]any {
	out := make(map[string]any)
	for k, e := range s.entries {
		if e.live(now) {
			out[string(k)] = e.value
		}
	}
	return out
}

// Keys lists live keys with the given prefix, sorted.
func (s *Store) Keys(prefix Key, now float64) []Key {
	var out []Key
	for k, e := range s.entries {
		if e.live(now) && strings.HasPrefix(string(k), string(prefix)) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// View returns a read-only handle for planners and tasks.
func (s *Store) View() View { return View{s: s} }
