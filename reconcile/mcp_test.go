package reconcile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/store"
)

func testReconciler(t *testing.T, host string) (*Reconciler, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Host:          host,
		Workspace:     filepath.Join(dir, "ws"),
		MCPConfigPath: filepath.Join(dir, "home", ".cursor", "mcp.json"),
		RulesPath:     config.DefaultRulesPath,
	}
	require.NoError(t, os.MkdirAll(cfg.Workspace, 0o755))
	st, err := store.Open(filepath.Join(dir, "data"), host)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(cfg, st, "1.2.3"), cfg
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestEnsureMCPConfigCreatesFile(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	ok, err := r.EnsureMCPConfig("K1")
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.MCPConfigPath}, ok)

	doc := readJSON(t, cfg.MCPConfigPath)
	servers := doc["mcpServers"].(map[string]any)
	entry := servers[ServerEntryName].(map[string]any)
	assert.Equal(t, "npx", entry["command"])
	assert.Equal(t, []any{"@qverisai/sdk"}, entry["args"])
	assert.Equal(t, "K1", entry["env"].(map[string]any)[APIKeyEnvVar])
}

func TestEnsureMCPConfigIdempotent(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	_, err := r.EnsureMCPConfig("K1")
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.MCPConfigPath)
	require.NoError(t, err)

	_, err = r.EnsureMCPConfig("K1")
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.MCPConfigPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestEnsureMCPConfigPreservesExistingContent(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	existing := map[string]any{
		"theme": "dark",
		"mcpServers": map[string]any{
			"other": map[string]any{"command": "deno"},
			ServerEntryName: map[string]any{
				"command": "custom-cmd",
				"env":     map[string]any{"FOO": "bar", APIKeyEnvVar: "OLD"},
			},
		},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.MCPConfigPath), 0o755))
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.MCPConfigPath, data, 0o644))

	_, err = r.EnsureMCPConfig("NEW")
	require.NoError(t, err)

	doc := readJSON(t, cfg.MCPConfigPath)
	assert.Equal(t, "dark", doc["theme"], "unrelated top-level keys preserved")

	servers := doc["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "other", "unrelated server entries preserved")

	entry := servers[ServerEntryName].(map[string]any)
	assert.Equal(t, "custom-cmd", entry["command"], "existing command not defaulted over")
	env := entry["env"].(map[string]any)
	assert.Equal(t, "bar", env["FOO"], "unrelated env vars preserved")
	assert.Equal(t, "NEW", env[APIKeyEnvVar], "API key always overwritten")
}

func TestEnsureMCPConfigInvalidJSONTreatedAsEmpty(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.MCPConfigPath), 0o755))
	require.NoError(t, os.WriteFile(cfg.MCPConfigPath, []byte("{broken"), 0o644))

	_, err := r.EnsureMCPConfig("K1")
	require.NoError(t, err)

	doc := readJSON(t, cfg.MCPConfigPath)
	entry := doc["mcpServers"].(map[string]any)[ServerEntryName].(map[string]any)
	assert.Equal(t, "K1", entry["env"].(map[string]any)[APIKeyEnvVar])
}

func TestMCPTargetsPerHost(t *testing.T) {
	rCursor, cfgCursor := testReconciler(t, config.HostCursor)
	assert.Equal(t, []string{cfgCursor.MCPConfigPath}, rCursor.MCPTargets(),
		"cursor host writes only the home path")

	rVSCode, cfgVSCode := testReconciler(t, config.HostVSCode)
	assert.Equal(t, []string{
		cfgVSCode.MCPConfigPath,
		filepath.Join(cfgVSCode.Workspace, ".vscode", "mcp.json"),
	}, rVSCode.MCPTargets(), "vscode host with workspace adds the workspace path")

	cfgVSCode.Workspace = ""
	assert.Equal(t, []string{cfgVSCode.MCPConfigPath}, rVSCode.MCPTargets(),
		"no workspace, no workspace path")
}

func TestEnsureMCPConfigPartialFailure(t *testing.T) {
	r, cfg := testReconciler(t, config.HostVSCode)

	// Make the workspace target unwritable by placing a file where the
	// .vscode directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace, ".vscode"), []byte("x"), 0o644))

	ok, err := r.EnsureMCPConfig("K1")
	assert.Equal(t, []string{cfg.MCPConfigPath}, ok, "healthy target still written")

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Len(t, werr.Failed, 1)
	assert.Contains(t, werr.Failed, filepath.Join(cfg.Workspace, ".vscode", "mcp.json"))
}

func TestDiscoverAPIKey(t *testing.T) {
	r, cfg := testReconciler(t, config.HostCursor)

	_, found := r.DiscoverAPIKey()
	assert.False(t, found)

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.MCPConfigPath), 0o755))
	body := `{"mcpServers":{"qveris":{"env":{"QVERIS_API_KEY":"FOUND"}}}}`
	require.NoError(t, os.WriteFile(cfg.MCPConfigPath, []byte(body), 0o644))

	key, found := r.DiscoverAPIKey()
	assert.True(t, found)
	assert.Equal(t, "FOUND", key)
}
