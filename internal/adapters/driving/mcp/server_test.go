package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anchor/internal/core/services"
)

func TestNewServer(t *testing.T) {
	t.Run("nil citation service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingCitationService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Citations: services.NewCitationParser(),
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil citation service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingCitationService)
	})

	t.Run("citations only is valid", func(t *testing.T) {
		ports := &Ports{
			Citations: services.NewCitationParser(),
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Citations: services.NewCitationParser(),
			Retrieval: &mockRetrievalService{},
			Entities:  &mockEntitySource{tree: testTree()},
			Prompts:   &mockPromptStore{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_registry(t *testing.T) {
	ctx := context.Background()

	t.Run("builds short ids from the current tree", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Citations: services.NewCitationParser(),
			Entities:  &mockEntitySource{tree: testTree()},
		})
		require.NoError(t, err)

		tree, reg, err := server.registry(ctx)
		require.NoError(t, err)
		assert.Equal(t, "resume-1", tree.ScopeID)
		assert.Equal(t, []string{"P1", "BP1", "BR1", "PG1"}, reg.ShortIDs())
	})

	t.Run("no entity source", func(t *testing.T) {
		server, err := NewServer(&Ports{Citations: services.NewCitationParser()})
		require.NoError(t, err)

		_, _, err = server.registry(ctx)
		assert.ErrorIs(t, err, ErrNoEntitySource)
	})

	t.Run("snapshot failure is wrapped", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Citations: services.NewCitationParser(),
			Entities:  &mockEntitySource{err: errors.New("disk gone")},
		})
		require.NoError(t, err)

		_, _, err = server.registry(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading entities")
		assert.Contains(t, err.Error(), "disk gone")
	})
}
