package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

const sampleJSON = `{
  "scope_id": "resume-1",
  "roots": [
    {"id": "proj_a", "kind": "container", "title": "Payments", "children": [
      {"id": "bp_a1", "kind": "item", "text": "Cut p99 latency by 40%", "children": [
        {"id": "br_a1x", "kind": "subitem", "text": "Rewrote the ledger cache"}
      ]}
    ]},
    {"id": "page_1", "kind": "document", "title": "Talk", "children": [
      {"id": "ep_1", "kind": "derived_point", "text": "Scaling lessons"}
    ]}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestSource_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	writeFile(t, path, sampleJSON)

	tree, err := NewSource(path).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "resume-1", tree.ScopeID)
	assert.Equal(t, 5, tree.Count())

	bp := tree.Roots[0].Children[0]
	assert.Equal(t, domain.KindItem, bp.Kind)
	assert.Equal(t, "proj_a", bp.ParentID)
	assert.Equal(t, "bp_a1", bp.Children[0].ParentID)
	assert.Equal(t, "", tree.Roots[0].ParentID)
}

func TestSource_Snapshot_DefaultScope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my-resume.json")
	writeFile(t, path, `{"roots": [{"id": "p", "kind": "container", "title": "X"}]}`)

	tree, err := NewSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my-resume", tree.ScopeID)
}

func TestSource_Snapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSource(filepath.Join(dir, "missing.json")).Snapshot(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{not json")
	_, err = NewSource(bad).Snapshot(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	kind := filepath.Join(dir, "kind.json")
	writeFile(t, kind, `{"roots": [{"id": "p", "kind": "container", "children": [{"id": "x", "kind": "widget"}]}]}`)
	_, err = NewSource(kind).Snapshot(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "widget")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSource(bad).Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.json")
	writeFile(t, path, sampleJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := NewSource(path).Watch(ctx)
	require.NoError(t, err)

	// Unrelated files in the directory are ignored.
	writeFile(t, filepath.Join(dir, "other.json"), "{}")
	select {
	case <-changes:
		t.Fatal("unexpected change for another file")
	case <-time.After(200 * time.Millisecond):
	}

	writeFile(t, path, sampleJSON)
	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSource_Watch_MissingDirectory(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope", "entities.json")).Watch(context.Background())
	require.Error(t, err)
}
