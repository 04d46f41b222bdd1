package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "dedupe", New().Name())
}

func TestProcessor_Process_DropsRepeatedHashes(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Hash: "h1", ChunkIndex: 0},
		{ID: "b", Hash: "h2", ChunkIndex: 1},
		{ID: "c", Hash: "h1", ChunkIndex: 2},
		{ID: "d", Hash: "h3", ChunkIndex: 3},
	}

	out, err := New().Process(context.Background(), &domain.SourceText{}, chunks)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "d", out[2].ID)
	assert.Equal(t, 3, out[2].ChunkIndex)
}

func TestProcessor_Process_Empty(t *testing.T) {
	out, err := New().Process(context.Background(), &domain.SourceText{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
