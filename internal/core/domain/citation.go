package domain

import "fmt"

// CitationType is the closed set of citation kinds.
type CitationType string

// Available citation types.
const (
	CitationContainer    CitationType = "container"
	CitationItem         CitationType = "item"
	CitationSubItem      CitationType = "subitem"
	CitationDocument     CitationType = "document"
	CitationWeb          CitationType = "web"
	CitationProfileA     CitationType = "external-profile-a"
	CitationProfileB     CitationType = "external-profile-b"
	CitationDerivedPoint CitationType = "derived-point"
	CitationMedia        CitationType = "media"
)

// IsValid returns true if the citation type is recognised.
func (t CitationType) IsValid() bool {
	switch t {
	case CitationContainer, CitationItem, CitationSubItem, CitationDocument, CitationWeb,
		CitationProfileA, CitationProfileB, CitationDerivedPoint, CitationMedia:
		return true
	default:
		return false
	}
}

// CitationTypeForKind maps an entity kind to its citation type.
func CitationTypeForKind(kind EntityKind) CitationType {
	switch kind {
	case KindContainer:
		return CitationContainer
	case KindItem:
		return CitationItem
	case KindSubItem:
		return CitationSubItem
	case KindDocument:
		return CitationDocument
	case KindDerivedPoint:
		return CitationDerivedPoint
	default:
		return ""
	}
}

// Reference holds the fields every citation carries.
type Reference struct {
	// Type is the citation type.
	Type CitationType

	// DisplayText is the human-readable text inside the marker.
	DisplayText string

	// ShortID is the id as written by the assistant (without media suffix).
	ShortID string

	// PersistentID is the resolved identifier, or ShortID when unresolved.
	PersistentID string

	// Resolved is false when the short ID was not found in the mapping.
	Resolved bool
}

// Citation is one reference parsed from assistant output.
// Implementations are EntityCitation, WebCitation, ProfileCitation,
// PointCitation and MediaCitation.
type Citation interface {
	// Ref returns the common reference fields.
	Ref() Reference

	isCitation()
}

// EntityCitation references a container, item, sub-item or document.
type EntityCitation struct {
	Reference
}

// WebCitation references a web search result.
type WebCitation struct {
	Reference
}

// ProfileCitation references an external profile (LinkedIn or GitHub).
type ProfileCitation struct {
	Reference

	// Resource is the optional sub-resource (e.g. a repository name).
	Resource string
}

// PointCitation references a derived (echo) point.
type PointCitation struct {
	Reference

	// PointIndex is the point number parsed from the display text, 0 when absent.
	PointIndex int
}

// MediaCitation references a position in a media file attached to a document.
type MediaCitation struct {
	Reference

	// FileRef is the referenced filename.
	FileRef string

	// Seconds is the offset into the media, nil when the marker has none.
	Seconds *int
}

// Ref returns the common reference fields.
func (c EntityCitation) Ref() Reference { return c.Reference }

// Ref returns the common reference fields.
func (c WebCitation) Ref() Reference { return c.Reference }

// Ref returns the common reference fields.
func (c ProfileCitation) Ref() Reference { return c.Reference }

// Ref returns the common reference fields.
func (c PointCitation) Ref() Reference { return c.Reference }

// Ref returns the common reference fields.
func (c MediaCitation) Ref() Reference { return c.Reference }

func (EntityCitation) isCitation()  {}
func (WebCitation) isCitation()     {}
func (ProfileCitation) isCitation() {}
func (PointCitation) isCitation()   {}
func (MediaCitation) isCitation()   {}

// CitationRecord is the flat wire form of a citation, used for JSON output.
type CitationRecord struct {
	Index        int          `json:"index"`
	Type         CitationType `json:"type"`
	DisplayText  string       `json:"display_text"`
	ShortID      string       `json:"short_id"`
	PersistentID string       `json:"persistent_id"`
	Resolved     bool         `json:"resolved"`
	Resource     string       `json:"resource,omitempty"`
	PointIndex   int          `json:"point_index,omitempty"`
	FileRef      string       `json:"file_ref,omitempty"`
	Seconds      *int         `json:"seconds,omitempty"`
}

// Flatten converts a citation to its wire form.
func Flatten(index int, c Citation) CitationRecord {
	ref := c.Ref()
	rec := CitationRecord{
		Index:        index,
		Type:         ref.Type,
		DisplayText:  ref.DisplayText,
		ShortID:      ref.ShortID,
		PersistentID: ref.PersistentID,
		Resolved:     ref.Resolved,
	}
	switch v := c.(type) {
	case ProfileCitation:
		rec.Resource = v.Resource
	case PointCitation:
		rec.PointIndex = v.PointIndex
	case MediaCitation:
		rec.FileRef = v.FileRef
		rec.Seconds = v.Seconds
	}
	return rec
}

// PlaceholderFormat is the token that replaces the Nth citation in normalized text.
const PlaceholderFormat = "{{CITATION_%d}}"

// Placeholder returns the placeholder token for citation index i.
func Placeholder(i int) string {
	return fmt.Sprintf(PlaceholderFormat, i)
}

// ParseResult is the output of citation parsing.
type ParseResult struct {
	// NormalizedText is the input with each recognised citation replaced by its placeholder.
	NormalizedText string

	// Citations are ordered so that Citations[N] matches Placeholder(N).
	Citations []Citation

	// Pending is a trailing fragment held back in streaming mode because it may
	// still grow into a citation. Always empty in finalize mode.
	Pending string
}

// Records flattens all citations to their wire form.
func (r *ParseResult) Records() []CitationRecord {
	out := make([]CitationRecord, len(r.Citations))
	for i, c := range r.Citations {
		out[i] = Flatten(i, c)
	}
	return out
}
