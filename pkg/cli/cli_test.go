package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynatable/internal/config"
	"dynatable/internal/domain"
	"dynatable/internal/policy"
	"dynatable/internal/token"
)

func TestRootCommandWiring(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"tables", "describe", "policy", "token", "backup"})
}

func TestPolicyApplyCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.sqlite")
	seedPath := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
policies:
  - name: docs_read
    table: docs
    operation: select
    using: owner = 'me'
`), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"policy", "apply", seedPath, "--db", dbPath})
	require.NoError(t, root.Execute())

	// The policy landed in the database the command migrated.
	writeDB, readDB, err := openDB(&config.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	p, err := policy.NewStore(readDB).GetByName(context.Background(), "docs_read")
	require.NoError(t, err)
	assert.Equal(t, domain.OpSelect, p.Operation)
}

func TestTokenIssueAndVerifyCommands(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"token", "issue"})
	// Missing --subject fails.
	assert.Error(t, root.Execute())
}

func TestTokenVerifyRejectsGarbage(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"token", "verify", "garbage"})
	err := root.Execute()
	assert.ErrorIs(t, err, token.ErrMalformed)
}
