package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

func TestIDsCmd_Use(t *testing.T) {
	assert.Equal(t, "ids", idsCmd.Use)
}

func TestIDsCmd_ListsShortIDs(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "ids")

	require.NoError(t, err)
	assert.Contains(t, out, "Scope: resume-1 (4 entities)")
	assert.Regexp(t, `P1\s+container\s+c-1`, out)
	assert.Regexp(t, `BP1\s+item\s+b-1`, out)
	assert.Regexp(t, `BR1\s+subitem\s+r-1`, out)
	assert.Regexp(t, `PG1\s+document\s+g-1`, out)
}

func TestIDsCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "ids", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"forward"`)
	assert.Contains(t, out, `"BP1": "b-1"`)
	assert.Contains(t, out, `"b-1": "BP1"`)
}

func TestIDsCmd_Prompt(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "ids", "--prompt")

	require.NoError(t, err)
	assert.Contains(t, out, "Cite with short IDs.")
	assert.Contains(t, out, "[P1] Payments platform")
	assert.Contains(t, out, "  [BP1] Cut p99 latency by 40%")
}

func TestIDsCmd_EmptyTree(t *testing.T) {
	s := setupTestServices(t)
	s.Entities = &stubEntities{tree: &domain.EntityTree{ScopeID: "empty"}}

	out, err := runCommand(t, "", "ids")

	require.NoError(t, err)
	assert.Contains(t, out, "No entities found.")
}

func TestIDsCmd_EntitySourceError(t *testing.T) {
	s := setupTestServices(t)
	s.Entities = &stubEntities{err: errors.New("bad json")}

	_, err := runCommand(t, "", "ids")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading entities")
}
