package dataset

import "sync"

// StrategyMap holds the plan of every label and the shared ceiling. It is
// changed only by the rebalancer and must be frozen before sampling.
type StrategyMap struct {
	mu              sync.RWMutex
	records         map[string]StrategyRecord
	order           []string
	backgroundLabel string
	truncation      int
	balancing       bool
	minSize         int
	maxSize         int
	frozen          bool
}

func newStrategyMap(backgroundLabel string, truncation int, balancing bool) *StrategyMap {
	return &StrategyMap{
		records:         make(map[string]StrategyRecord),
		backgroundLabel: backgroundLabel,
		truncation:      truncation,
		balancing:       balancing,
	}
}

func (m *StrategyMap) put(r StrategyRecord) {
	if _, ok := m.records[r.Label]; !ok {
		m.order = append(m.order, r.Label)
	}
	m.records[r.Label] = r
}

// Get returns the record of label.
func (m *StrategyMap) Get(label string) (StrategyRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[label]
	return r, ok
}

// Background returns the background record.
func (m *StrategyMap) Background() (StrategyRecord, bool) {
	return m.Get(m.backgroundLabel)
}

func (m *StrategyMap) BackgroundLabel() string { return m.backgroundLabel }

// Records returns every record, regular labels first and background last.
func (m *StrategyMap) Records() []StrategyRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StrategyRecord, 0, len(m.order))
	for _, label := range m.order {
		out = append(out, m.records[label])
	}
	return out
}

func (m *StrategyMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Truncation is the shared ceiling.
func (m *StrategyMap) Truncation() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.truncation
}

// TotalLoaded sums the targets of every record, background included.
func (m *StrategyMap) TotalLoaded() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, r := range m.records {
		total += r.TotalLoaded
	}
	return total
}

// SizeRange is the smallest and largest non-empty label size seen while
// planning. Both are zero when every label was empty.
func (m *StrategyMap) SizeRange() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minSize, m.maxSize
}

// Freeze makes the map read-only.
func (m *StrategyMap) Freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

func (m *StrategyMap) Frozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen
}

// retarget recomputes every record against a new ceiling.
func (m *StrategyMap) retarget(truncation int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return ErrFrozen
	}

	m.truncation = truncation
	contributing := 0
	for _, label := range m.order {
		if label != m.backgroundLabel {
			contributing++
		}
	}
	for _, label := range m.order {
		r := m.records[label]
		if label == m.backgroundLabel {
			m.records[label] = backgroundRecord(label, r.TotalSize, truncation, contributing)
			continue
		}
		m.records[label] = classify(label, r.TotalSize, truncation, m.balancing)
	}
	return nil
}
