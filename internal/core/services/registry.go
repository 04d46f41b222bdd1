package services

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// maxContextLabel bounds the label rendered per entity in RenderContext.
const maxContextLabel = 120

// Registry is the short-ID state for one turn. It is built from an entity
// snapshot and must be rebuilt whenever the snapshot changes; short IDs are
// meaningless outside the Registry that issued them.
type Registry struct {
	tree     *domain.EntityTree
	mapping  *domain.IDMapping
	entities map[string]*domain.Entity
	order    []string
}

// BuildRegistry assigns short IDs to every entity in a pre-order walk.
// Each kind has its own counter. Entities with an empty persistent ID or an
// unknown kind are skipped without consuming a counter value, though their
// children are still visited. A persistent ID seen twice keeps its first short ID.
func BuildRegistry(tree *domain.EntityTree) *Registry {
	r := &Registry{
		tree:     tree,
		mapping:  domain.NewIDMapping(),
		entities: make(map[string]*domain.Entity),
	}

	counters := make(map[domain.EntityKind]int, len(domain.AllEntityKinds()))
	tree.Walk(func(e *domain.Entity) bool {
		if e.ID == "" || !e.Kind.IsValid() {
			return true
		}
		if _, seen := r.mapping.Forward[e.ID]; seen {
			return true
		}

		counters[e.Kind]++
		sid := domain.FormatShortID(e.Kind, counters[e.Kind])

		r.mapping.Forward[e.ID] = sid
		r.mapping.Reverse[sid] = e.ID
		r.entities[sid] = e
		r.order = append(r.order, sid)
		return true
	})

	return r
}

// Mapping returns the forward and reverse lookup tables.
func (r *Registry) Mapping() *domain.IDMapping {
	return r.mapping
}

// ShortID returns the short ID assigned to a persistent ID.
func (r *Registry) ShortID(persistentID string) (string, bool) {
	sid, ok := r.mapping.Forward[persistentID]
	return sid, ok
}

// PersistentID returns the persistent ID behind a short ID.
func (r *Registry) PersistentID(shortID string) (string, bool) {
	return r.mapping.Resolve(shortID)
}

// Entity returns the entity behind a short ID.
func (r *Registry) Entity(shortID string) (*domain.Entity, bool) {
	e, ok := r.entities[shortID]
	return e, ok
}

// ShortIDs returns all short IDs in assignment order.
func (r *Registry) ShortIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of mapped entities.
func (r *Registry) Len() int {
	return len(r.order)
}

// RenderContext renders the tree as a prompt block. Each mapped entity is one
// line, indented by depth and tagged with its short ID:
//
//	[P1] Payments platform
//	  [BP1] Cut p99 latency by 40%
//
// Skipped entities are omitted and their children move up one level.
func (r *Registry) RenderContext() string {
	if r.tree == nil {
		return ""
	}

	var b strings.Builder
	for i := range r.tree.Roots {
		r.renderEntity(&b, &r.tree.Roots[i], 0)
	}
	return b.String()
}

func (r *Registry) renderEntity(b *strings.Builder, e *domain.Entity, depth int) {
	childDepth := depth
	if sid, ok := r.mapping.Forward[e.ID]; ok && r.entities[sid] == e {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("[" + sid + "] ")
		b.WriteString(contextLabel(e))
		b.WriteByte('\n')
		childDepth++
	}
	for i := range e.Children {
		r.renderEntity(b, &e.Children[i], childDepth)
	}
}

// contextLabel is the title, or the first line of text, truncated.
func contextLabel(e *domain.Entity) string {
	label := strings.TrimSpace(e.Title)
	if label == "" {
		label = strings.TrimSpace(e.Text)
		if i := strings.IndexByte(label, '\n'); i >= 0 {
			label = strings.TrimSpace(label[:i])
		}
	}
	if utf8.RuneCountInString(label) > maxContextLabel {
		label = string([]rune(label)[:maxContextLabel-1]) + "…"
	}
	return label
}
