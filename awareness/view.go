package awareness

// Well-known belief keys.
var (
	KeyScoutDispatched       = K("intel", "scout", "scv_dispatched")
	KeyScvArrivedMain        = K("intel", "scout", "scv_arrived_main")
	KeyLastScanAt            = K("intel", "scan", "last_scan_at")
	KeyReaperScoutDispatched = K("intel", "reaper", "dispatched")
	KeyOpeningKind           = K("enemy", "opening", "kind")
	KeyOpeningConfidence     = K("enemy", "opening", "confidence")
	KeyOpeningSignals        = K("enemy", "opening", "signals")
	KeyFirstSeen             = K("enemy", "first_seen_t")
	KeyDepotLastAction       = K("macro", "depots", "last_action")
)

// LastDoneKey is where a planner's tasks record their completion time.
func LastDoneKey(plannerID string) Key { return K("planner", plannerID, "last_done_at") }

// View is a read-only handle onto a Store.
type View struct {
	s *Store
}

// Get returns the live value for k. A zero View reads as empty.
func (v View) Get(k Key, now float64) (any, bool) {
	if v.s == nil {
		return nil, false
	}
	return v.s.Get(k, now)
}

func (v View) GetOr(k Key, now float64, def any) any {
	if val, ok := v.Get(k, now); ok {
		return val
	}
	return def
}

// Bool is true only for a live boolean true.
func (v View) Bool(k Key, now float64) bool {
	val, ok := v.Get(k, now)
	if !ok {
		return false
	}
	b, _ := val.(bool)
	return b
}

// Float accepts any numeric value.
func (v View) Float(k Key, now float64) (float64, bool) {
	val, ok := v.Get(k, now)
	if !ok {
		return 0, false
	}
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (v View) String(k Key, now float64) (string, bool) {
	val, ok := v.Get(k, now)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Since returns now minus the time stored at k. ok is false when nothing
// is stored, which interval gates treat as "never".
func (v View) Since(k Key, now float64) (float64, bool) {
	t, ok := v.Float(k, now)
	if !ok {
		return 0, false
	}
	return now - t, true
}

func (v View) ScoutDispatched(now float64) bool { return v.Bool(KeyScoutDispatched, now) }
func (v View) ScvArrivedMain(now float64) bool  { return v.Bool(KeyScvArrivedMain, now) }

func (v View) ReaperScoutDispatched(now float64) bool {
	return v.Bool(KeyReaperScoutDispatched, now)
}

func (v View) LastScanAt(now float64) (float64, bool) { return v.Float(KeyLastScanAt, now) }

// Opening returns the classified enemy opening and its confidence.
func (v View) Opening(now float64) (kind string, confidence float64, ok bool) {
	kind, ok = v.String(KeyOpeningKind, now)
	if !ok {
		return "", 0, false
	}
	confidence, _ = v.Float(KeyOpeningConfidence, now)
	return kind, confidence, true
}

// FirstSeen is the time any enemy was first observed.
func (v View) FirstSeen(now float64) (float64, bool) { return v.Float(KeyFirstSeen, now) }

func (v View) DepotLastAction(now float64) string {
	s, _ := v.String(KeyDepotLastAction, now)
	return s
}

// Store-side writers for the well-known beliefs. All are permanent except
// where noted.

func (s *Store) MarkScoutDispatched(now float64) { s.Set(KeyScoutDispatched, true, now, 0) }
func (s *Store) MarkScvArrivedMain(now float64)  { s.Set(KeyScvArrivedMain, true, now, 0) }
func (s *Store) MarkScan(now float64)            { s.Set(KeyLastScanAt, now, now, 0) }

func (s *Store) MarkReaperScoutDispatched(now float64) {
	s.Set(KeyReaperScoutDispatched, true, now, 0)
}

// Fact constructors used by tasks, which may not write directly.

func ScoutDispatchedFact() Fact { return Fact{Key: KeyScoutDispatched, Value: true} }
func ScvArrivedMainFact() Fact  { return Fact{Key: KeyScvArrivedMain, Value: true} }
func ScanFact(now float64) Fact { return Fact{Key: KeyLastScanAt, Value: now} }

func ReaperScoutDispatchedFact() Fact {
	return Fact{Key: KeyReaperScoutDispatched, Value: true}
}

func DepotActionFact(action string) Fact {
	return Fact{Key: KeyDepotLastAction, Value: action}
}
