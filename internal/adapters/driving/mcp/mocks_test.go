package mcp

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievalResult
	err     error

	scopeID string
	query   string
	mapping *domain.IDMapping
	opts    domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	scopeID, query string,
	mapping *domain.IDMapping,
	opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	m.scopeID = scopeID
	m.query = query
	m.mapping = mapping
	m.opts = opts
	return m.results, m.err
}

// mockEntitySource is a mock implementation of driven.EntitySource.
type mockEntitySource struct {
	tree *domain.EntityTree
	err  error
}

func (m *mockEntitySource) Snapshot(_ context.Context) (*domain.EntityTree, error) {
	return m.tree, m.err
}

// mockPromptStore is a mock implementation of driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

// testTree returns a small tree: P1 > BP1 > BR1, and PG1.
func testTree() *domain.EntityTree {
	return &domain.EntityTree{
		ScopeID: "resume-1",
		Roots: []domain.Entity{
			{
				ID:    "c-1",
				Kind:  domain.KindContainer,
				Title: "Payments platform",
				Children: []domain.Entity{
					{
						ID:       "b-1",
						Kind:     domain.KindItem,
						ParentID: "c-1",
						Text:     "Cut p99 latency by 40%",
						Children: []domain.Entity{
							{ID: "r-1", Kind: domain.KindSubItem, ParentID: "b-1", Text: "Rewrote the ledger cache"},
						},
					},
				},
			},
			{ID: "g-1", Kind: domain.KindDocument, Title: "Notes", Text: "Quarterly notes"},
		},
	}
}
