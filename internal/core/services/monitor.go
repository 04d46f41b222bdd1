package services

import "github.com/custodia-labs/anchor/internal/core/domain"

// CitationMonitor counts citation-shaped spans in streamed output and
// classifies the malformed ones. It never changes the text it observes.
// It sees the same spans the parser does, plus bracket markers no
// grammar accepts, so every citation the parser emits is counted.
//
// A monitor belongs to one stream and is not safe for concurrent use.
// Callers feed only new deltas; text observed twice is counted twice.
type CitationMonitor struct {
	mapping   *domain.IDMapping
	total     int
	valid     int
	histogram map[domain.FailureKind]int
}

// NewCitationMonitor creates a monitor. mapping is optional; without it
// unresolved ids are not reported.
func NewCitationMonitor(mapping *domain.IDMapping) *CitationMonitor {
	return &CitationMonitor{
		mapping:   mapping,
		histogram: make(map[domain.FailureKind]int),
	}
}

// Observe counts the citation-shaped spans in chunk and returns the counts
// for this chunk alone.
func (m *CitationMonitor) Observe(chunk string) domain.MonitorSnapshot {
	delta := domain.MonitorSnapshot{Histogram: make(map[domain.FailureKind]int)}

	for _, s := range citationSpans(chunk, m.mapping) {
		delta.Total++
		if failure, bad := m.validate(s); bad {
			delta.Invalid++
			delta.Histogram[failure]++
			continue
		}
		delta.Valid++
	}
	delta.Accuracy = domain.AccuracyPercent(delta.Valid, delta.Total)

	m.total += delta.Total
	m.valid += delta.Valid
	for k, n := range delta.Histogram {
		m.histogram[k] += n
	}
	return delta
}

// Snapshot returns the accumulated counts.
func (m *CitationMonitor) Snapshot() domain.MonitorSnapshot {
	hist := make(map[domain.FailureKind]int, len(m.histogram))
	for k, n := range m.histogram {
		hist[k] = n
	}
	return domain.MonitorSnapshot{
		Total:     m.total,
		Valid:     m.valid,
		Invalid:   m.total - m.valid,
		Accuracy:  domain.AccuracyPercent(m.valid, m.total),
		Histogram: hist,
	}
}

// Reset clears all counters.
func (m *CitationMonitor) Reset() {
	m.total = 0
	m.valid = 0
	m.histogram = make(map[domain.FailureKind]int)
}

// validate applies the structural checks in order and reports the first failure.
func (m *CitationMonitor) validate(s span) (domain.FailureKind, bool) {
	if s.display == "" {
		return domain.FailureEmptyText, true
	}
	if s.grammar == grammarEcho {
		return "", false
	}

	id := domain.ParseCitationID(s.rawID)
	if id.Shape == domain.ShapeInvalid {
		return domain.FailureInvalidID, true
	}

	if m.mapping != nil && (id.Shape == domain.ShapeEntity || id.Shape == domain.ShapeMedia) {
		if _, ok := m.mapping.Resolve(id.ShortID); !ok {
			return domain.FailureUnresolvedID, true
		}
	}
	return "", false
}
