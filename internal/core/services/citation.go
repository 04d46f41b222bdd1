package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
)

// Ensure CitationParser implements the interface.
var _ driving.CitationService = (*CitationParser)(nil)

// MaxPendingRunes bounds the trailing fragment ParsePartial holds back.
// A longer unterminated fragment is treated as plain text.
const MaxPendingRunes = 512

// Citation grammars. Brackets may be ASCII or the CJK 【】 pair.
var (
	// [Type: "text"]{id}. The closing quote and bracket may be missing.
	legacyPattern = regexp.MustCompile(
		`[\[【]\s*([A-Za-z][A-Za-z ]*?)\s*:\s*["“]([^"“”\]】{]*)["”]?\s*[\]】]?\s*\{([^{}\s]+)\}`)

	// [text]{id}
	compactPattern = regexp.MustCompile(`[\[【]([^\[\]【】{}]+?)[\]】]\{([^{}\s]+)\}`)

	// [Echo P3] or [Echo Point 3], a derived point without an id.
	echoPattern = regexp.MustCompile(`(?i)[\[【]\s*(echo\s*(?:point\s*|p)(\d+))\s*[\]】]`)

	// [anything]{anything}, the malformed markers no grammar above accepts.
	malformedPattern = regexp.MustCompile(`[\[【]([^\[\]【】{}]*)[\]】]\{([^{}]*)\}`)

	// legacyHeadPattern extracts the quoted display text of a malformed legacy body.
	legacyHeadPattern = regexp.MustCompile(`^\s*[A-Za-z][A-Za-z ]*?\s*:\s*["“]([^"“”]*)["”]?\s*$`)
)

var (
	// pointPattern finds a derived-point reference in display text.
	pointPattern = regexp.MustCompile(`(?i)(?:\becho\s*(?:point\s*|p)|^\s*point\s*)(\d+)\b`)

	// pointNumberPattern is the P<n> form inside derived-point display text.
	pointNumberPattern = regexp.MustCompile(`\bP(\d+)\b`)

	// secondsPattern is the T<seconds>s offset inside media display text.
	secondsPattern = regexp.MustCompile(`\bT(\d+)s\b`)

	// toolNamePattern matches snake_case tool identifiers such as search_web.
	toolNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(?:_[a-z0-9]+)+$`)

	// toolPrefixPattern matches explicit tool-call labels.
	toolPrefixPattern = regexp.MustCompile(`(?i)^\s*tool(?:\s+call)?\s*:`)

	// toolMarkerPattern matches a whole bracketed tool marker with one leading space.
	toolMarkerPattern = regexp.MustCompile(
		`[ \t]?\[(?:[a-z][a-z0-9]*(?:_[a-z0-9]+)+|(?i:tool(?:\s+call)?)\s*:[^\[\]\n]*)\]`)

	// pendingPattern matches a trailing fragment that may still become a citation.
	pendingPattern = regexp.MustCompile(`^[\[【][^\]】\n]*(?:[\]】](?:\{[^}\s]*)?)?$`)
)

// legacyTypes is the allow-list of declared types in the legacy grammar.
var legacyTypes = map[string]domain.CitationType{
	"project":      domain.CitationContainer,
	"bullet":       domain.CitationItem,
	"bullet point": domain.CitationItem,
	"branch":       domain.CitationSubItem,
	"page":         domain.CitationDocument,
	"document":     domain.CitationDocument,
	"web":          domain.CitationWeb,
	"linkedin":     domain.CitationProfileA,
	"github":       domain.CitationProfileB,
	"echo":         domain.CitationDerivedPoint,
	"echo point":   domain.CitationDerivedPoint,
	"media":        domain.CitationMedia,
	"audio":        domain.CitationMedia,
}

// grammar ranks candidate spans; lower wins an overlap.
type grammar int

const (
	grammarLegacy grammar = iota
	grammarCompact
	grammarEcho
	grammarMalformed
)

// span is one citation-shaped region of the input. A nil citation marks a
// span the parser rejected; it keeps its text untouched. display and rawID
// hold the marker's parts as written, rawID empty for echo spans.
type span struct {
	start, end int
	grammar    grammar
	display    string
	rawID      string
	citation   domain.Citation
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// CitationParser extracts citation markers from assistant output.
// It is stateless and safe for concurrent use.
type CitationParser struct{}

// NewCitationParser creates a citation parser.
func NewCitationParser() *CitationParser {
	return &CitationParser{}
}

// Parse replaces every recognised citation in text with a placeholder.
// mapping may be nil; citations then keep their short ID unresolved.
func (p *CitationParser) Parse(text string, mapping *domain.IDMapping) domain.ParseResult {
	result := domain.ParseResult{Citations: []domain.Citation{}}
	if text == "" {
		return result
	}

	spans := citationSpans(text, mapping)

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, s := range spans {
		if s.citation == nil {
			continue
		}
		b.WriteString(text[last:s.start])
		b.WriteString(domain.Placeholder(len(result.Citations)))
		result.Citations = append(result.Citations, s.citation)
		last = s.end
	}
	b.WriteString(text[last:])

	result.NormalizedText = b.String()
	return result
}

// ParsePartial parses a growing prefix of streamed text. A trailing fragment
// that may still grow into a citation is returned in Pending instead of
// being parsed; callers re-invoke with the longer prefix as it arrives.
func (p *CitationParser) ParsePartial(text string, mapping *domain.IDMapping) domain.ParseResult {
	cut := pendingStart(text)
	result := p.Parse(text[:cut], mapping)
	result.Pending = text[cut:]
	return result
}

// StripToolMarkers removes bracketed tool-call markers such as [search_web]
// or [tool: lookup]. Citations are not affected.
func (p *CitationParser) StripToolMarkers(text string) string {
	return toolMarkerPattern.ReplaceAllString(text, "")
}

// pendingStart returns the byte offset where a held-back fragment begins,
// or len(text) when nothing is held back.
func pendingStart(text string) int {
	i := strings.LastIndexAny(text, "[【")
	if i < 0 {
		return len(text)
	}
	tail := text[i:]
	if utf8.RuneCountInString(tail) > MaxPendingRunes || !pendingPattern.MatchString(tail) {
		return len(text)
	}
	return i
}

// citationSpans returns the citation-shaped spans of text in order, one per
// region, after overlap resolution. The parser replaces the accepted ones;
// the monitor validates all of them.
func citationSpans(text string, mapping *domain.IDMapping) []span {
	return resolveOverlaps(scan(text, mapping))
}

// scan runs every grammar over text and returns all candidate spans.
// Markers with blank display text are never accepted.
func scan(text string, mapping *domain.IDMapping) []span {
	var spans []span

	for _, m := range legacyPattern.FindAllStringSubmatchIndex(text, -1) {
		declared := strings.ToLower(strings.Join(strings.Fields(text[m[2]:m[3]]), " "))
		s := span{
			start:   m[0],
			end:     m[1],
			grammar: grammarLegacy,
			display: strings.TrimSpace(text[m[4]:m[5]]),
			rawID:   text[m[6]:m[7]],
		}
		if typ, ok := legacyTypes[declared]; ok && s.display != "" {
			s.citation = classifyLegacy(typ, s.display, s.rawID, mapping)
		}
		spans = append(spans, s)
	}

	for _, m := range compactPattern.FindAllStringSubmatchIndex(text, -1) {
		s := span{
			start:   m[0],
			end:     m[1],
			grammar: grammarCompact,
			display: strings.TrimSpace(text[m[2]:m[3]]),
			rawID:   text[m[4]:m[5]],
		}
		if isToolMarker(s.display) {
			continue
		}
		if s.display != "" {
			s.citation = classifyCompact(s.display, s.rawID, mapping)
		}
		spans = append(spans, s)
	}

	for _, m := range echoPattern.FindAllStringSubmatchIndex(text, -1) {
		n, _ := strconv.Atoi(text[m[4]:m[5]])
		display := strings.TrimSpace(text[m[2]:m[3]])
		spans = append(spans, span{
			start:   m[0],
			end:     m[1],
			grammar: grammarEcho,
			display: display,
			citation: domain.PointCitation{
				Reference: domain.Reference{
					Type:        domain.CitationDerivedPoint,
					DisplayText: display,
				},
				PointIndex: n,
			},
		})
	}

	for _, m := range malformedPattern.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		if isToolMarker(strings.TrimSpace(body)) {
			continue
		}
		if head := legacyHeadPattern.FindStringSubmatch(body); head != nil {
			body = head[1]
		}
		spans = append(spans, span{
			start:   m[0],
			end:     m[1],
			grammar: grammarMalformed,
			display: strings.TrimSpace(body),
			rawID:   text[m[4]:m[5]],
		})
	}

	return spans
}

// resolveOverlaps keeps the highest-priority span of every overlapping group
// and returns the survivors in text order. Rejected spans take part, so a
// rejected legacy marker is never reinterpreted by a weaker grammar.
func resolveOverlaps(spans []span) []span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].grammar != spans[j].grammar {
			return spans[i].grammar < spans[j].grammar
		}
		return spans[i].start < spans[j].start
	})

	kept := make([]span, 0, len(spans))
	for _, s := range spans {
		clash := false
		for _, k := range kept {
			if s.overlaps(k) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, s)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

func isToolMarker(display string) bool {
	return toolNamePattern.MatchString(display) || toolPrefixPattern.MatchString(display)
}

// classifyLegacy builds a citation whose type was declared in the marker.
// A media-shaped id always yields a media citation.
func classifyLegacy(typ domain.CitationType, display, rawID string, mapping *domain.IDMapping) domain.Citation {
	id := domain.ParseCitationID(rawID)
	if id.Shape == domain.ShapeMedia {
		return mediaCitation(display, id, mapping)
	}

	switch typ {
	case domain.CitationDerivedPoint:
		return pointCitation(display, id, mapping)
	case domain.CitationMedia:
		return mediaCitation(display, id, mapping)
	case domain.CitationWeb:
		return domain.WebCitation{Reference: reservedReference(typ, display, id.ShortID, mapping)}
	case domain.CitationProfileA, domain.CitationProfileB:
		return domain.ProfileCitation{
			Reference: reservedReference(typ, display, id.ShortID, mapping),
			Resource:  id.Resource,
		}
	default:
		return domain.EntityCitation{Reference: entityReference(typ, display, id.ShortID, mapping)}
	}
}

// classifyCompact infers the citation type from the id prefix and the
// display text. It returns nil when neither identifies a type.
func classifyCompact(display, rawID string, mapping *domain.IDMapping) domain.Citation {
	id := domain.ParseCitationID(rawID)
	if id.Shape == domain.ShapeMedia {
		return mediaCitation(display, id, mapping)
	}
	if pointPattern.MatchString(display) || id.Kind == domain.KindDerivedPoint {
		return pointCitation(display, id, mapping)
	}

	switch id.Shape {
	case domain.ShapeEntity:
		typ := domain.CitationTypeForKind(id.Kind)
		return domain.EntityCitation{Reference: entityReference(typ, display, id.ShortID, mapping)}
	case domain.ShapeWeb:
		return domain.WebCitation{Reference: reservedReference(domain.CitationWeb, display, id.ShortID, mapping)}
	case domain.ShapeProfile:
		typ := domain.CitationProfileA
		if id.ShortID == domain.ReservedGitHub {
			typ = domain.CitationProfileB
		}
		return domain.ProfileCitation{
			Reference: reservedReference(typ, display, id.ShortID, mapping),
			Resource:  id.Resource,
		}
	default:
		return nil
	}
}

func pointCitation(display string, id domain.CitationID, mapping *domain.IDMapping) domain.PointCitation {
	c := domain.PointCitation{
		Reference: entityReference(domain.CitationDerivedPoint, display, id.ShortID, mapping),
	}
	if m := pointPattern.FindStringSubmatch(display); m != nil {
		c.PointIndex, _ = strconv.Atoi(m[1])
	} else if m := pointNumberPattern.FindStringSubmatch(display); m != nil {
		c.PointIndex, _ = strconv.Atoi(m[1])
	}
	return c
}

func mediaCitation(display string, id domain.CitationID, mapping *domain.IDMapping) domain.MediaCitation {
	c := domain.MediaCitation{
		Reference: entityReference(domain.CitationMedia, display, id.ShortID, mapping),
		FileRef:   id.FileRef,
	}
	if m := secondsPattern.FindStringSubmatch(display); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			c.Seconds = &secs
		}
	}
	return c
}

// entityReference resolves a short ID, falling back to the short ID itself.
func entityReference(typ domain.CitationType, display, shortID string, mapping *domain.IDMapping) domain.Reference {
	ref := domain.Reference{Type: typ, DisplayText: display, ShortID: shortID, PersistentID: shortID}
	if pid, ok := mapping.Resolve(shortID); ok {
		ref.PersistentID = pid
		ref.Resolved = true
	}
	return ref
}

// reservedReference resolves a reserved token. Reserved tokens name fixed
// sources, so they count as resolved even without a mapping entry.
func reservedReference(typ domain.CitationType, display, token string, mapping *domain.IDMapping) domain.Reference {
	ref := domain.Reference{Type: typ, DisplayText: display, ShortID: token, PersistentID: token, Resolved: true}
	if pid, ok := mapping.Resolve(token); ok {
		ref.PersistentID = pid
	}
	return ref
}
