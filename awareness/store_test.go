package awareness

import (
	"strings"
	"testing"

	"github.com/nstehr/ego/audit"
)

func TestTTLWindow(t *testing.T) {
	s := NewStore(nil)
	k := K("enemy", "opening", "kind")
	s.Set(k, "GREEDY", 100, 12)

	for _, now := range []float64{100, 105.5, 111.999} {
		if v, ok := s.Get(k, now); !ok || v != "GREEDY" {
			t.Errorf("Get at %v = %v, %v; want GREEDY", now, v, ok)
		}
	}
	for _, now := range []float64{112, 130} {
		if got := s.GetOr(k, now, "unknown"); got != "unknown" {
			t.Errorf("GetOr at %v = %v, want default", now, got)
		}
	}
}

func TestPermanentUntilOverwritten(t *testing.T) {
	s := NewStore(nil)
	k := K("enemy", "first_seen_t")
	s.Set(k, 45.0, 45, 0)
	if v, ok := s.Get(k, 1e9); !ok || v != 45.0 {
		t.Fatalf("permanent entry lost: %v %v", v, ok)
	}
	s.Set(k, 50.0, 50, 2)
	if _, ok := s.Get(k, 52); ok {
		t.Error("overwrite with ttl should make the entry expire")
	}
}

func TestPrune(t *testing.T) {
	s := NewStore(nil)
	s.Set(K("a"), 1, 0, 1)
	s.Set(K("b"), 2, 0, 0)
	s.Set(K("c"), 3, 0, 10)

	if n := s.Prune(5); n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestViewTypedAccessors(t *testing.T) {
	s := NewStore(nil)
	v := s.View()

	if v.ScoutDispatched(0) || v.ScvArrivedMain(0) {
		t.Fatal("empty store should report nothing dispatched")
	}
	s.MarkScoutDispatched(26)
	s.MarkScan(100)
	s.Set(K("x"), 7, 0, 0)

	if !v.ScoutDispatched(27) {
		t.Error("scout dispatched not visible through view")
	}
	if at, ok := v.LastScanAt(115); !ok || at != 100 {
		t.Errorf("LastScanAt = %v, %v", at, ok)
	}
	if f, ok := v.Float(K("x"), 0); !ok || f != 7 {
		t.Errorf("Float on int = %v, %v", f, ok)
	}
	if since, ok := v.Since(KeyLastScanAt, 121); !ok || since != 21 {
		t.Errorf("Since = %v, %v", since, ok)
	}
	if _, ok := (View{}).Get(K("x"), 0); ok {
		t.Error("zero View should read empty")
	}
}

func TestApplyFacts(t *testing.T) {
	s := NewStore(nil)
	s.Apply([]Fact{ScvArrivedMainFact(), DepotActionFact("raise")}, 40)
	v := s.View()
	if !v.ScvArrivedMain(40) || v.DepotLastAction(40) != "raise" {
		t.Errorf("facts not applied: %v", s.Snapshot(40))
	}
}

func TestBeliefEventsOnChangeOnly(t *testing.T) {
	sink := &audit.MemorySink{}
	s := NewStore(audit.NewEmitter(sink, "g", nil))
	k := K("enemy", "opening", "kind")

	s.Set(k, "NORMAL", 1, 12)
	s.Set(k, "NORMAL", 2, 12)
	s.Set(k, "GREEDY", 3, 12)
	s.Set(k, "GREEDY", 20, 12) // previous expired at 15

	if n := sink.Count("belief_set"); n != 3 {
		t.Errorf("belief_set events = %d, want 3", n)
	}
}

func TestKeyParts(t *testing.T) {
	k := K("enemy", "opening", "kind")
	if got := k.Parts(); len(got) != 3 || got[2] != "kind" {
		t.Errorf("Parts = %v", got)
	}
	if LastDoneKey("depots") != K("planner", "depots", "last_done_at") {
		t.Errorf("LastDoneKey = %q", LastDoneKey("depots"))
	}
}

func TestKeySegmentsWithSeparator(t *testing.T) {
	joined, split := K("a/b"), K("a", "b")
	if joined == split {
		t.Fatalf("K(%q) and K(%q, %q) collide as %q", "a/b", "a", "b", joined)
	}
	tests := [][]string{
		{"a/b"},
		{"a", "b"},
		{"rules.x/y", "last_done_at"},
		{"100%", "%2F", ""},
	}
	for _, parts := range tests {
		got := K(parts...).Parts()
		if strings.Join(got, "|") != strings.Join(parts, "|") || len(got) != len(parts) {
			t.Errorf("K(%q).Parts() = %q", parts, got)
		}
	}

	s := NewStore(nil)
	s.Set(joined, 1, 0, 0)
	s.Set(split, 2, 0, 0)
	if v, _ := s.Get(joined, 1); v != 1 {
		t.Errorf("Get(K(\"a/b\")) = %v, want 1", v)
	}
}
