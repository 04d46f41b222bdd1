// Package file provides an entity source backed by a JSON file on disk.
//
// The file holds one content tree:
//
//	{
//	  "scope_id": "resume-1",
//	  "roots": [
//	    {"id": "proj_a", "kind": "container", "title": "Payments", "children": [
//	      {"id": "bp_a1", "kind": "item", "text": "Cut p99 latency by 40%"}
//	    ]}
//	  ]
//	}
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.WatchableEntitySource = (*Source)(nil)

var sourceLog = logger.For("entitysource")

// Source reads entity trees from a JSON file.
type Source struct {
	path string
}

// NewSource creates a source for the file at path. The file need not exist yet.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the file path.
func (s *Source) Path() string {
	return s.path
}

// Snapshot reads and validates the current tree. A tree without a scope ID
// is scoped by the file name without extension. Parent IDs are filled in
// from nesting where the file leaves them out.
func (s *Source) Snapshot(ctx context.Context) (*domain.EntityTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: entity file %s", domain.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("read entity file: %w", err)
	}

	var tree domain.EntityTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, s.path, err)
	}

	if tree.ScopeID == "" {
		tree.ScopeID = strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	}
	for i := range tree.Roots {
		if err := prepare(&tree.Roots[i], ""); err != nil {
			return nil, err
		}
	}

	sourceLog.Debug("loaded %d entities from %s", tree.Count(), s.path)
	return &tree, nil
}

func prepare(e *domain.Entity, parentID string) error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: entity %q has unknown kind %q", domain.ErrInvalidInput, e.ID, e.Kind)
	}
	if e.ParentID == "" {
		e.ParentID = parentID
	}
	for i := range e.Children {
		if err := prepare(&e.Children[i], e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Watch emits a value each time the file is written, created or replaced.
// The parent directory is watched so editors that save by rename are seen.
// Bursts of events collapse into one pending signal.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				sourceLog.Debug("%s: %s", event.Op, event.Name)
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Entity file watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}
