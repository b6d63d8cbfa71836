package reconcile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qverisai/qveris-cli/config"
)

func TestEnsureRulesNoopOutsideCursorHost(t *testing.T) {
	r, cfg := testReconciler(t, config.HostVSCode)

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	assert.False(t, wrote)
	_, statErr := os.Stat(filepath.Join(cfg.Workspace, config.DefaultRulesPath))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsureRulesNoopWithoutWorkspace(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)
	cfg.Workspace = ""

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	assert.False(t, wrote)
}

func TestEnsureRulesCreatesFileWithFrontMatter(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	assert.True(t, wrote)

	data, err := os.ReadFile(r.RulesPath())
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "---\n"), "new file starts with front matter")
	assert.Contains(t, content, blockBegin)
	assert.Contains(t, content, blockEnd)
}

func TestEnsureRulesVerbatimBlockIsNoop(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	require.True(t, wrote)
	before, err := os.ReadFile(r.RulesPath())
	require.NoError(t, err)

	wrote, err = r.EnsureRules(false)
	require.NoError(t, err)
	assert.False(t, wrote, "verbatim block present, no write")

	after, err := os.ReadFile(r.RulesPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestEnsureRulesForceRewritesBlock(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)

	_, err := r.EnsureRules(false)
	require.NoError(t, err)

	wrote, err := r.EnsureRules(true)
	require.NoError(t, err)
	assert.True(t, wrote, "force replaces even a verbatim block")
}

func TestEnsureRulesAppendsToUserProse(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)

	prose := "# My own rules\n\nAlways be concise.\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(r.RulesPath()), 0o755))
	require.NoError(t, os.WriteFile(r.RulesPath(), []byte(prose), 0o644))

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	assert.True(t, wrote)

	data, err := os.ReadFile(r.RulesPath())
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# My own rules"), "user prose preserved at top")
	assert.Contains(t, content, "Always be concise.")
	assert.Contains(t, content, blockBegin)
}

func TestEnsureRulesReplacesOnlyDelimitedBlock(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)

	existing := "intro prose\n\n" + blockBegin + "\nstale generated text\n" + blockEnd + "\n\ntrailing prose\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(r.RulesPath()), 0o755))
	require.NoError(t, os.WriteFile(r.RulesPath(), []byte(existing), 0o644))

	wrote, err := r.EnsureRules(false)
	require.NoError(t, err)
	assert.True(t, wrote)

	data, err := os.ReadFile(r.RulesPath())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "intro prose")
	assert.Contains(t, content, "trailing prose")
	assert.NotContains(t, content, "stale generated text")
	assert.Equal(t, 1, strings.Count(content, blockBegin), "exactly one generated block")
}

func TestEnsureStaticRules(t *testing.T) {
	r, _ := testReconciler(t, config.HostCursor)
	path := filepath.Join(filepath.Dir(r.RulesPath()), StaticRulesFile)

	wrote, err := r.EnsureStaticRules(false)
	require.NoError(t, err)
	assert.True(t, wrote)

	// User edits are kept while the file exists and force is off.
	require.NoError(t, os.WriteFile(path, []byte("user edited"), 0o644))
	wrote, err = r.EnsureStaticRules(false)
	require.NoError(t, err)
	assert.False(t, wrote)

	// Force overwrites the whole file, no merging.
	wrote, err = r.EnsureStaticRules(true)
	require.NoError(t, err)
	assert.True(t, wrote)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, staticRules, string(data))
}

func TestApplyAggregatesFailures(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	// Break the rules directory so only the rules writers fail.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace, ".cursor"), []byte("x"), 0o644))

	ok, err := r.Apply("K1", false)
	assert.Equal(t, []string{cfg.ExpandPath(cfg.MCPConfigPath)}, ok, "MCP write still succeeds")

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Contains(t, werr.Failed, r.RulesPath())
}
