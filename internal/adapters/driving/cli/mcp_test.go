package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCmd_HasServe(t *testing.T) {
	var found bool
	for _, cmd := range mcpCmd.Commands() {
		if cmd.Name() == "serve" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_RequiresCitationService(t *testing.T) {
	s := setupTestServices(t)
	s.Citations = nil

	_, err := runCommand(t, "", "mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "citation service is required")
}
