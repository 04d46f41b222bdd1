package domain

// EntityKind identifies the kind of a content entity.
type EntityKind string

// Available entity kinds.
const (
	// KindContainer is a top-level grouping such as a project.
	KindContainer EntityKind = "container"

	// KindItem is a leaf entry (bullet point) nested under a container.
	KindItem EntityKind = "item"

	// KindSubItem is a branch nested under an item.
	KindSubItem EntityKind = "subitem"

	// KindDocument is a standalone free-text page.
	KindDocument EntityKind = "document"

	// KindDerivedPoint is a summary point (echo point) extracted from audio.
	KindDerivedPoint EntityKind = "derived_point"
)

// AllEntityKinds returns every entity kind in registry numbering order.
func AllEntityKinds() []EntityKind {
	return []EntityKind{KindContainer, KindItem, KindSubItem, KindDocument, KindDerivedPoint}
}

// IsValid returns true if the kind is recognised.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindContainer, KindItem, KindSubItem, KindDocument, KindDerivedPoint:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k EntityKind) String() string {
	return string(k)
}

// Entity is a snapshot of one piece of user content.
// The core only ever reads entities; the entity source owns their lifecycle.
type Entity struct {
	// ID is the persistent identifier assigned by the storage layer.
	ID string `json:"id"`

	// Kind is the entity kind.
	Kind EntityKind `json:"kind"`

	// ParentID links to the parent entity, empty for roots.
	ParentID string `json:"parent_id,omitempty"`

	// Title is a short label (project name, page title).
	Title string `json:"title,omitempty"`

	// Text is the full text content.
	Text string `json:"text,omitempty"`

	// Children are nested entities in display order.
	Children []Entity `json:"children,omitempty"`
}

// Content returns the text used for indexing: title and body joined by a blank line.
func (e *Entity) Content() string {
	switch {
	case e.Title == "":
		return e.Text
	case e.Text == "":
		return e.Title
	default:
		return e.Title + "\n\n" + e.Text
	}
}

// EntityTree is an ordered snapshot of all entities in one scope (e.g. one resume).
type EntityTree struct {
	// ScopeID identifies the top-level content tree.
	ScopeID string `json:"scope_id"`

	// Roots are the top-level entities in display order.
	Roots []Entity `json:"roots"`
}

// Walk visits every entity in pre-order. Returning false from fn stops the walk.
func (t *EntityTree) Walk(fn func(e *Entity) bool) {
	if t == nil {
		return
	}
	for i := range t.Roots {
		if !walkEntity(&t.Roots[i], fn) {
			return
		}
	}
}

func walkEntity(e *Entity, fn func(e *Entity) bool) bool {
	if !fn(e) {
		return false
	}
	for i := range e.Children {
		if !walkEntity(&e.Children[i], fn) {
			return false
		}
	}
	return true
}

// Count returns the number of entities in the tree.
func (t *EntityTree) Count() int {
	n := 0
	t.Walk(func(*Entity) bool {
		n++
		return true
	})
	return n
}
