package audit

import "sync"

// MemorySink keeps records in memory, mostly for tests.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func (m *MemorySink) Write(r Record) error {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) Close() error { return nil }

// Records returns a copy of everything written so far.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Events returns the records with the given event name.
func (m *MemorySink) Events(event string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many records carry the given event name.
func (m *MemorySink) Count(event string) int {
	return len(m.Events(event))
}

func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}
