package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatShortID(t *testing.T) {
	assert.Equal(t, "P1", FormatShortID(KindContainer, 1))
	assert.Equal(t, "BP12", FormatShortID(KindItem, 12))
	assert.Equal(t, "BR3", FormatShortID(KindSubItem, 3))
	assert.Equal(t, "PG2", FormatShortID(KindDocument, 2))
	assert.Equal(t, "EP7", FormatShortID(KindDerivedPoint, 7))
}

func TestPrefixFor_DistinctPerKind(t *testing.T) {
	seen := make(map[string]EntityKind)
	for _, kind := range AllEntityKinds() {
		prefix := PrefixFor(kind)
		assert.NotEmpty(t, prefix)
		_, dup := seen[prefix]
		assert.False(t, dup, "prefix %q reused", prefix)
		seen[prefix] = kind
	}
}

func TestParseCitationID(t *testing.T) {
	tests := []struct {
		raw      string
		shape    IDShape
		shortID  string
		kind     EntityKind
		number   int
		fileRef  string
		resource string
	}{
		{raw: "P1", shape: ShapeEntity, shortID: "P1", kind: KindContainer, number: 1},
		{raw: "BP10", shape: ShapeEntity, shortID: "BP10", kind: KindItem, number: 10},
		{raw: "BR2", shape: ShapeEntity, shortID: "BR2", kind: KindSubItem, number: 2},
		{raw: "PG4", shape: ShapeEntity, shortID: "PG4", kind: KindDocument, number: 4},
		{raw: "EP3", shape: ShapeEntity, shortID: "EP3", kind: KindDerivedPoint, number: 3},
		{raw: " P5 ", shape: ShapeEntity, shortID: "P5", kind: KindContainer, number: 5},
		{raw: "PG2:interview.m4a", shape: ShapeMedia, shortID: "PG2", kind: KindDocument, number: 2, fileRef: "interview.m4a"},
		{raw: "PG1:Team sync (final).mp3", shape: ShapeMedia, shortID: "PG1", kind: KindDocument, number: 1, fileRef: "Team sync (final).mp3"},
		{raw: "WEB", shape: ShapeWeb, shortID: "WEB"},
		{raw: "WEB3", shape: ShapeWeb, shortID: "WEB3"},
		{raw: "LINKEDIN", shape: ShapeProfile, shortID: "LINKEDIN"},
		{raw: "GITHUB:octocat/hello-world", shape: ShapeProfile, shortID: "GITHUB", resource: "octocat/hello-world"},
		{raw: "P0", shape: ShapeInvalid, shortID: "P0"},
		{raw: "X1", shape: ShapeInvalid, shortID: "X1"},
		{raw: "P1:file.mp3", shape: ShapeInvalid, shortID: "P1:file.mp3"},
		{raw: "PG1:noextension", shape: ShapeInvalid, shortID: "PG1:noextension"},
		{raw: "", shape: ShapeInvalid},
		{raw: "p1", shape: ShapeInvalid, shortID: "p1"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id := ParseCitationID(tt.raw)
			assert.Equal(t, tt.shape, id.Shape)
			assert.Equal(t, tt.shortID, id.ShortID)
			assert.Equal(t, tt.kind, id.Kind)
			assert.Equal(t, tt.number, id.Number)
			assert.Equal(t, tt.fileRef, id.FileRef)
			assert.Equal(t, tt.resource, id.Resource)
			assert.Equal(t, tt.shape != ShapeInvalid, IsValidCitationID(tt.raw))
		})
	}
}

func TestIDMapping_Resolve(t *testing.T) {
	m := NewIDMapping()
	m.Forward["proj_abc"] = "P1"
	m.Reverse["P1"] = "proj_abc"

	pid, ok := m.Resolve("P1")
	assert.True(t, ok)
	assert.Equal(t, "proj_abc", pid)

	_, ok = m.Resolve("P2")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	var nilMapping *IDMapping
	_, ok = nilMapping.Resolve("P1")
	assert.False(t, ok)
	assert.Equal(t, 0, nilMapping.Len())
}
