package domain

// FailureKind names why a citation-shaped span failed validation.
type FailureKind string

// Failure categories tracked by the citation monitor.
const (
	// FailureEmptyText is a marker with blank display text.
	FailureEmptyText FailureKind = "empty_text"

	// FailureInvalidID is an id matching none of the citation id shapes.
	FailureInvalidID FailureKind = "invalid_id"

	// FailureUnresolvedID is a well-formed entity id missing from the mapping.
	FailureUnresolvedID FailureKind = "unresolved_id"
)

// AllFailureKinds returns the failure categories in reporting order.
func AllFailureKinds() []FailureKind {
	return []FailureKind{FailureEmptyText, FailureInvalidID, FailureUnresolvedID}
}

// MonitorSnapshot is a point-in-time view of citation quality counters.
type MonitorSnapshot struct {
	Total     int                 `json:"total"`
	Valid     int                 `json:"valid"`
	Invalid   int                 `json:"invalid"`
	Accuracy  float64             `json:"accuracy"`
	Histogram map[FailureKind]int `json:"histogram"`
}

// AccuracyPercent returns valid/total as a percentage, 0 when total is 0.
func AccuracyPercent(valid, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total) * 100
}
