package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anchor/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/ports/driving"
	"github.com/custodia-labs/anchor/internal/postprocessors"
	"github.com/custodia-labs/anchor/internal/postprocessors/chunker"
)

var smallChunks = domain.ChunkSettings{Size: 40, Overlap: 10, NormalizeWhitespace: true}

func newTestPipeline(embedder *stubEmbedder, store *memory.KnowledgeStore) *EmbeddingPipeline {
	p := NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, embedder, store)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

const sampleText = "Led the payments platform rewrite across four teams.\n\n" +
	"Cut p99 latency from 900ms to 120ms by introducing a write-through ledger cache."

func TestEmbeddingPipeline_Embed_AlignsChunksAndVectors(t *testing.T) {
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, nil)

	embedded, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.NoError(t, err)

	chunks := chunker.Split(sampleText, chunker.Options{ChunkSize: 40, Overlap: 10, NormalizeWhitespace: true})
	require.Len(t, embedded, len(chunks))
	assert.Equal(t, 1, embedder.calls, "one batch call")

	for i, ec := range embedded {
		assert.Equal(t, chunks[i], ec.Content)
		assert.Equal(t, i, ec.ChunkIndex)
		assert.Equal(t, chunker.Hash(chunks[i]), ec.Hash)
		assert.Equal(t, ec.ID, ec.Embedding.ChunkID)
		assert.Equal(t, "stub-embed", ec.Embedding.Model)
		assert.Equal(t, 4, ec.Embedding.Dimension)
		assert.Equal(t, embedder.vector(ec.Content), ec.Embedding.Vector)
	}
}

func TestEmbeddingPipeline_Embed_EmptyInput(t *testing.T) {
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, nil)

	embedded, err := p.Embed(context.Background(), "  \n\n ", driving.EmbedOptions{})
	require.NoError(t, err)
	assert.Empty(t, embedded)
	assert.Equal(t, 0, embedder.calls)
}

func TestEmbeddingPipeline_Embed_ChunkOverrides(t *testing.T) {
	embedder := newStubEmbedder(2)
	p := newTestPipeline(embedder, nil)

	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "w%03d ", i)
	}

	// 249 runes after trimming: windows start at 0, 80 and 149.
	embedded, err := p.Embed(context.Background(), b.String(),
		driving.EmbedOptions{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)
	require.Len(t, embedded, 3)
	assert.Equal(t, "w000", embedded[0].Content[:4])
}

func TestEmbeddingPipeline_Embed_CountMismatch(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.drop = 1
	p := newTestPipeline(embedder, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)
}

func TestEmbeddingPipeline_Embed_EmptyVector(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.emptyAt = 1
	p := newTestPipeline(embedder, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)
}

func TestEmbeddingPipeline_Embed_DimensionMismatch(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.wrongAt = 0
	p := newTestPipeline(embedder, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.ErrorIs(t, err, domain.ErrEmbeddingDimensionMismatch)
}

func TestEmbeddingPipeline_Embed_ModelMismatch(t *testing.T) {
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{Model: "other-model"})
	require.ErrorIs(t, err, domain.ErrModelMismatch)
	assert.Equal(t, 0, embedder.calls)

	_, err = p.Embed(context.Background(), sampleText, driving.EmbedOptions{Model: "stub-embed"})
	require.NoError(t, err)
}

func TestEmbeddingPipeline_Embed_NoEmbedder(t *testing.T) {
	p := NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, nil, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	embedded, err := p.Embed(context.Background(), "", driving.EmbedOptions{})
	require.NoError(t, err, "empty input never errors")
	assert.Empty(t, embedded)
}

func TestEmbeddingPipeline_Embed_ProviderError(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.embedErr = errors.New("connection refused")
	p := newTestPipeline(embedder, nil)

	_, err := p.Embed(context.Background(), sampleText, driving.EmbedOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidateEmbeddings_UnknownDeclaredDimension(t *testing.T) {
	dim, err := validateEmbeddings([][]float32{{1, 2, 3}, {4, 5, 6}}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	_, err = validateEmbeddings([][]float32{{1, 2, 3}, {4, 5}}, 2, 0)
	require.ErrorIs(t, err, domain.ErrEmbeddingDimensionMismatch)
}

func TestEmbeddingPipeline_Index_WritesRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	p := newTestPipeline(newStubEmbedder(4), store)

	report, err := p.Index(ctx, driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1", Text: sampleText,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sources)
	assert.Greater(t, report.Chunks, 1)
	assert.Equal(t, report.Chunks, report.Written)
	assert.Equal(t, 0, report.Skipped)

	n, err := store.Count(ctx, "resume-1")
	require.NoError(t, err)
	assert.Equal(t, report.Written, n)

	hits, err := store.SearchKeyword(ctx, "resume-1", "ledger", domain.KnowledgeQuery{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "bp_1", hits[0].Record.SourceID)
	assert.Equal(t, "stub-embed", hits[0].Record.Model)
	assert.Equal(t, 2026, hits[0].Record.UpdatedAt.Year())
}

func TestEmbeddingPipeline_Index_SkipsUnchangedChunks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, store)
	req := driving.IndexRequest{ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1", Text: sampleText}

	first, err := p.Index(ctx, req)
	require.NoError(t, err)

	second, err := p.Index(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Skipped)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 1, embedder.calls, "unchanged text is not re-embedded")

	// Appending a paragraph embeds only the new chunk.
	req.Text = sampleText + "\n\nMentored two interns."
	third, err := p.Index(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Written)
	assert.Equal(t, []string{"Mentored two interns."}, embedder.texts[1])
}

func TestEmbeddingPipeline_Index_NoPartialWriteOnMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	wrapped := &failingStore{KnowledgeStore: store}
	embedder := newStubEmbedder(4)
	embedder.drop = 1

	p := NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, embedder, wrapped)

	_, err := p.Index(ctx, driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1", Text: sampleText,
	})
	require.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)

	assert.Equal(t, 0, wrapped.writes)
	n, _ := store.Count(ctx, "resume-1")
	assert.Equal(t, 0, n)
}

func TestEmbeddingPipeline_Index_StoreError(t *testing.T) {
	wrapped := &failingStore{KnowledgeStore: memory.NewKnowledgeStore(), writeErr: errors.New("disk full")}
	p := NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, newStubEmbedder(4), wrapped)

	_, err := p.Index(context.Background(), driving.IndexRequest{
		ScopeID: "s", SourceType: domain.KindItem, SourceID: "bp_1", Text: "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEmbeddingPipeline_Index_Validation(t *testing.T) {
	ctx := context.Background()

	p := NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, newStubEmbedder(4), nil)
	_, err := p.Index(ctx, driving.IndexRequest{ScopeID: "s", SourceID: "x", Text: "t"})
	require.ErrorIs(t, err, domain.ErrKnowledgeStoreUnavailable)

	p = newTestPipeline(newStubEmbedder(4), memory.NewKnowledgeStore())
	_, err = p.Index(ctx, driving.IndexRequest{SourceID: "x", Text: "t"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := p.Index(ctx, driving.IndexRequest{ScopeID: "s", SourceID: "x", Text: ""})
	require.NoError(t, err)
	assert.Equal(t, driving.IndexReport{}, report)

	p = NewEmbeddingPipeline(postprocessors.NewDefaultRegistry(), smallChunks, nil, memory.NewKnowledgeStore())
	report, err = p.Index(ctx, driving.IndexRequest{ScopeID: "s", SourceID: "x", Text: " \n "})
	require.NoError(t, err, "empty input never errors")
	assert.Equal(t, driving.IndexReport{}, report)
}

func TestEmbeddingPipeline_Index_PrependedParagraphKeepsExistingChunks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, store)
	req := driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindDocument, SourceID: "page_1",
		Text: "Alpha paragraph.\n\nBravo paragraph.",
	}

	_, err := p.Index(ctx, req)
	require.NoError(t, err)

	req.Text = "New opening.\n\nAlpha paragraph.\n\nBravo paragraph."
	report, err := p.Index(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, driving.IndexReport{Sources: 1, Chunks: 3, Skipped: 2, Written: 1}, report)
	assert.Equal(t, []string{"New opening."}, embedder.texts[1], "only the new chunk is embedded")

	n, err := store.Count(ctx, "resume-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i, word := range []string{"opening", "alpha", "bravo"} {
		hits, err := store.SearchKeyword(ctx, "resume-1", word, domain.KnowledgeQuery{})
		require.NoError(t, err)
		require.Len(t, hits, 1, word)
		assert.Equal(t, i, hits[0].Record.ChunkIndex, word)
		assert.Equal(t, embedder.vector(hits[0].Record.Content), hits[0].Record.Vector, word)
	}
}

func TestEmbeddingPipeline_Index_ShrinkingTextDropsTail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	p := newTestPipeline(newStubEmbedder(4), store)
	req := driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1",
		Text: "First point.\n\nSecond point.\n\nThird point.",
	}

	_, err := p.Index(ctx, req)
	require.NoError(t, err)

	req.Text = "Second point."
	report, err := p.Index(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Written)

	n, _ := store.Count(ctx, "resume-1")
	assert.Equal(t, 1, n)
	hits, err := store.SearchKeyword(ctx, "resume-1", "second", domain.KnowledgeQuery{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Record.ChunkIndex)

	req.Text = ""
	_, err = p.Index(ctx, req)
	require.NoError(t, err)
	n, _ = store.Count(ctx, "resume-1")
	assert.Equal(t, 0, n)
}

func TestEmbeddingPipeline_Index_ReusesVectorAcrossSources(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	embedder := newStubEmbedder(4)
	p := newTestPipeline(embedder, store)

	_, err := p.Index(ctx, driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1", Text: "Shipped the ledger.",
	})
	require.NoError(t, err)

	report, err := p.Index(ctx, driving.IndexRequest{
		ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_2", Text: "Shipped the ledger.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, embedder.calls)

	n, _ := store.Count(ctx, "resume-1")
	assert.Equal(t, 2, n, "each source keeps its own record")
}

func TestEmbeddingPipeline_Index_OtherModelIsReembedded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	req := driving.IndexRequest{ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1", Text: "Shipped."}

	_, err := newTestPipeline(newStubEmbedder(4), store).Index(ctx, req)
	require.NoError(t, err)

	other := newStubEmbedder(4)
	other.model = "other-embed"
	report, err := newTestPipeline(other, store).Index(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 0, report.Skipped)

	hits, err := store.SearchKeyword(ctx, "resume-1", "shipped", domain.KnowledgeQuery{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "other-embed", hits[0].Record.Model)
}

func TestEmbeddingPipeline_IndexTree(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	p := newTestPipeline(newStubEmbedder(4), store)

	tree := sampleTree()
	tree.Roots = append(tree.Roots, domain.Entity{ID: "", Kind: domain.KindItem, Text: "no id, skipped"})

	report, err := p.IndexTree(ctx, tree)
	require.NoError(t, err)
	assert.Equal(t, 9, report.Sources)
	assert.Equal(t, report.Chunks, report.Written+report.Skipped)

	again, err := p.IndexTree(ctx, tree)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Written)
	assert.Equal(t, report.Chunks, again.Skipped)
	assert.Equal(t, 0, again.Removed)
}

func TestEmbeddingPipeline_IndexTree_RemovesStaleSources(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	p := newTestPipeline(newStubEmbedder(4), store)

	tree := &domain.EntityTree{
		ScopeID: "resume-1",
		Roots: []domain.Entity{
			{ID: "bp_1", Kind: domain.KindItem, Text: "Kept bullet."},
			{ID: "bp_2", Kind: domain.KindItem, Text: "Deleted bullet."},
			{ID: "bp_3", Kind: domain.KindItem, Text: "Emptied bullet."},
		},
	}
	_, err := p.IndexTree(ctx, tree)
	require.NoError(t, err)

	other := &domain.EntityTree{
		ScopeID: "resume-2",
		Roots:   []domain.Entity{{ID: "bp_9", Kind: domain.KindItem, Text: "Other scope."}},
	}
	_, err = p.IndexTree(ctx, other)
	require.NoError(t, err)

	tree.Roots = []domain.Entity{
		{ID: "bp_1", Kind: domain.KindItem, Text: "Kept bullet."},
		{ID: "bp_3", Kind: domain.KindItem},
	}
	report, err := p.IndexTree(ctx, tree)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed)

	refs, err := store.Sources(ctx, "resume-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceRef{{ScopeID: "resume-1", SourceType: domain.KindItem, SourceID: "bp_1"}}, refs)

	n, _ := store.Count(ctx, "resume-2")
	assert.Equal(t, 1, n, "other scopes are untouched")
}

func TestEmbeddingPipeline_IndexTree_StopsOnError(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.embedErr = errors.New("boom")
	p := newTestPipeline(embedder, memory.NewKnowledgeStore())

	_, err := p.IndexTree(context.Background(), sampleTree())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proj_a")
	assert.Equal(t, 1, embedder.calls)
}
