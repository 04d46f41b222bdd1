package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTree() *EntityTree {
	return &EntityTree{
		ScopeID: "resume-1",
		Roots: []Entity{
			{ID: "proj_a", Kind: KindContainer, Title: "Alpha", Children: []Entity{
				{ID: "bp_1", Kind: KindItem, Text: "Did one", Children: []Entity{
					{ID: "br_1", Kind: KindSubItem, Text: "Detail"},
				}},
			}},
			{ID: "page_1", Kind: KindDocument, Title: "Notes"},
		},
	}
}

func TestEntityTree_WalkPreOrder(t *testing.T) {
	var ids []string
	sampleTree().Walk(func(e *Entity) bool {
		ids = append(ids, e.ID)
		return true
	})

	assert.Equal(t, []string{"proj_a", "bp_1", "br_1", "page_1"}, ids)
}

func TestEntityTree_WalkStops(t *testing.T) {
	var ids []string
	sampleTree().Walk(func(e *Entity) bool {
		ids = append(ids, e.ID)
		return e.ID != "bp_1"
	})

	assert.Equal(t, []string{"proj_a", "bp_1"}, ids)
}

func TestEntityTree_Count(t *testing.T) {
	assert.Equal(t, 4, sampleTree().Count())

	var nilTree *EntityTree
	assert.Equal(t, 0, nilTree.Count())
}

func TestEntity_Content(t *testing.T) {
	assert.Equal(t, "Alpha\n\nBody", (&Entity{Title: "Alpha", Text: "Body"}).Content())
	assert.Equal(t, "Body", (&Entity{Text: "Body"}).Content())
	assert.Equal(t, "Alpha", (&Entity{Title: "Alpha"}).Content())
	assert.Equal(t, "", (&Entity{}).Content())
}

func TestEntityKind_IsValid(t *testing.T) {
	for _, k := range AllEntityKinds() {
		assert.True(t, k.IsValid())
	}
	assert.False(t, EntityKind("folder").IsValid())
}
