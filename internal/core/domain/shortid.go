package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Short ID prefixes, one per entity kind.
const (
	PrefixContainer    = "P"
	PrefixItem         = "BP"
	PrefixSubItem      = "BR"
	PrefixDocument     = "PG"
	PrefixDerivedPoint = "EP"
)

// Reserved citation tokens for sources that are not entities.
const (
	ReservedWeb      = "WEB"
	ReservedLinkedIn = "LINKEDIN"
	ReservedGitHub   = "GITHUB"
)

var kindPrefixes = map[EntityKind]string{
	KindContainer:    PrefixContainer,
	KindItem:         PrefixItem,
	KindSubItem:      PrefixSubItem,
	KindDocument:     PrefixDocument,
	KindDerivedPoint: PrefixDerivedPoint,
}

var prefixKinds = map[string]EntityKind{
	PrefixContainer:    KindContainer,
	PrefixItem:         KindItem,
	PrefixSubItem:      KindSubItem,
	PrefixDocument:     KindDocument,
	PrefixDerivedPoint: KindDerivedPoint,
}

// Longest prefixes first so "BP1" never reads as "B"+"P1".
var (
	entityIDPattern  = regexp.MustCompile(`^(BP|BR|PG|EP|P)([1-9][0-9]*)$`)
	mediaIDPattern   = regexp.MustCompile(`^(PG[1-9][0-9]*):([\w][\w .()\-]*\.[A-Za-z0-9]{1,8})$`)
	webIDPattern     = regexp.MustCompile(`^WEB([1-9][0-9]*)?$`)
	profileIDPattern = regexp.MustCompile(`^(LINKEDIN|GITHUB)(?::([\w./\-]+))?$`)
)

// PrefixFor returns the short ID prefix for an entity kind.
func PrefixFor(kind EntityKind) string {
	return kindPrefixes[kind]
}

// FormatShortID builds a short ID from a kind and a 1-based counter.
func FormatShortID(kind EntityKind, n int) string {
	return kindPrefixes[kind] + strconv.Itoa(n)
}

// IDShape classifies the id part of a citation marker.
type IDShape int

// Recognised id shapes.
const (
	ShapeInvalid IDShape = iota
	ShapeEntity
	ShapeMedia
	ShapeWeb
	ShapeProfile
)

// CitationID is a parsed citation id.
type CitationID struct {
	// Shape is the id shape.
	Shape IDShape

	// ShortID is the registry key (e.g. "PG2" for "PG2:talk.m4a", "WEB" for web).
	ShortID string

	// Kind is the entity kind for entity and media shapes.
	Kind EntityKind

	// Number is the counter part of an entity short ID.
	Number int

	// FileRef is the filename suffix of a media id.
	FileRef string

	// Resource is the optional sub-resource suffix of a profile id.
	Resource string
}

// ParseCitationID classifies a raw citation id. Surrounding whitespace is ignored.
func ParseCitationID(raw string) CitationID {
	id := strings.TrimSpace(raw)
	if m := entityIDPattern.FindStringSubmatch(id); m != nil {
		n, _ := strconv.Atoi(m[2])
		return CitationID{Shape: ShapeEntity, ShortID: id, Kind: prefixKinds[m[1]], Number: n}
	}
	if m := mediaIDPattern.FindStringSubmatch(id); m != nil {
		n, _ := strconv.Atoi(strings.TrimPrefix(m[1], PrefixDocument))
		return CitationID{Shape: ShapeMedia, ShortID: m[1], Kind: KindDocument, Number: n, FileRef: strings.TrimSpace(m[2])}
	}
	if webIDPattern.MatchString(id) {
		return CitationID{Shape: ShapeWeb, ShortID: id}
	}
	if m := profileIDPattern.FindStringSubmatch(id); m != nil {
		return CitationID{Shape: ShapeProfile, ShortID: m[1], Resource: m[2]}
	}
	return CitationID{Shape: ShapeInvalid, ShortID: id}
}

// IsValidCitationID reports whether raw matches one of the citation id shapes.
func IsValidCitationID(raw string) bool {
	return ParseCitationID(raw).Shape != ShapeInvalid
}

// IDMapping is the two-way lookup between persistent and short IDs for one turn.
// Forward and Reverse are exact inverses.
type IDMapping struct {
	// Forward maps persistent ID to short ID.
	Forward map[string]string `json:"forward"`

	// Reverse maps short ID to persistent ID.
	Reverse map[string]string `json:"reverse"`
}

// NewIDMapping creates an empty mapping.
func NewIDMapping() *IDMapping {
	return &IDMapping{
		Forward: make(map[string]string),
		Reverse: make(map[string]string),
	}
}

// Resolve returns the persistent ID for a short ID.
// A nil mapping resolves nothing.
func (m *IDMapping) Resolve(shortID string) (string, bool) {
	if m == nil {
		return "", false
	}
	pid, ok := m.Reverse[shortID]
	return pid, ok
}

// Len returns the number of mapped entities.
func (m *IDMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Forward)
}
