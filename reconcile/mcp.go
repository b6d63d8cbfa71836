// Package reconcile keeps externally owned configuration files
// consistent with the stored API key: the MCP server descriptor JSON
// and the editor rules files. All writers are idempotent and preserve
// unrelated content the user may have added.
package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/store"
)

const (
	// ServerEntryName is the well-known mcpServers entry this client manages.
	ServerEntryName = "qveris"
	// APIKeyEnvVar is the only value inside the entry that is always overwritten.
	APIKeyEnvVar = "QVERIS_API_KEY"

	defaultCommand = "npx"
	defaultPackage = "@qverisai/sdk"
)

// Reconciler owns both external-file writers.
type Reconciler struct {
	cfg     *config.Config
	st      *store.Store
	version string
}

// New returns a reconciler for the given configuration. version is the
// running client version recorded when the rules prompt is applied.
func New(cfg *config.Config, st *store.Store, version string) *Reconciler {
	return &Reconciler{cfg: cfg, st: st, version: version}
}

// WriteError aggregates per-path reconciliation failures. Partial
// success across targets is expected; both lists are reported.
type WriteError struct {
	OK     []string
	Failed map[string]error
}

func (e *WriteError) Error() string {
	paths := make([]string, 0, len(e.Failed))
	for p := range e.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return fmt.Sprintf("failed to update %s", strings.Join(paths, ", "))
}

// MCPTargets lists the descriptor files to keep in sync: the user-home
// path always, plus a workspace path when running for the vscode host
// with an open workspace.
func (r *Reconciler) MCPTargets() []string {
	targets := []string{r.cfg.ExpandPath(r.cfg.MCPConfigPath)}
	if r.cfg.Host == config.HostVSCode && r.cfg.Workspace != "" {
		targets = append(targets, filepath.Join(r.cfg.Workspace, ".vscode", "mcp.json"))
	}
	return targets
}

// EnsureMCPConfig merges the API key into every target descriptor.
// Targets are written concurrently; one path failing does not block the
// others. The returned slice lists paths written successfully, and the
// error (a *WriteError) carries the rest.
func (r *Reconciler) EnsureMCPConfig(apiKey string) ([]string, error) {
	targets := r.MCPTargets()

	type outcome struct {
		path string
		err  error
	}
	results := make(chan outcome, len(targets))
	for _, path := range targets {
		go func(path string) {
			results <- outcome{path, ensureMCPFile(path, apiKey)}
		}(path)
	}

	werr := &WriteError{Failed: map[string]error{}}
	for range targets {
		res := <-results
		if res.err != nil {
			werr.Failed[res.path] = res.err
		} else {
			werr.OK = append(werr.OK, res.path)
		}
	}
	sort.Strings(werr.OK)

	if len(werr.Failed) > 0 {
		return werr.OK, werr
	}
	return werr.OK, nil
}

// ensureMCPFile performs one read-modify-write cycle. Unreadable or
// invalid existing content is treated as an empty document. Only the
// API-key environment variable is overwritten unconditionally; command
// and args are defaulted when absent, and every other top-level key,
// server entry and environment variable is preserved.
func ensureMCPFile(path, apiKey string) error {
	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			doc = map[string]any{}
		}
	}

	servers, ok := doc["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	doc["mcpServers"] = servers

	entry, ok := servers[ServerEntryName].(map[string]any)
	if !ok {
		entry = map[string]any{}
	}
	servers[ServerEntryName] = entry

	if _, ok := entry["command"]; !ok {
		entry["command"] = defaultCommand
	}
	if _, ok := entry["args"]; !ok {
		entry["args"] = []any{defaultPackage}
	}

	env, ok := entry["env"].(map[string]any)
	if !ok {
		env = map[string]any{}
	}
	entry["env"] = env
	env[APIKeyEnvVar] = apiKey

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// DiscoverAPIKey reads an API key a previous installation may have left
// in the user-home descriptor, so a fresh install can adopt it.
func (r *Reconciler) DiscoverAPIKey() (string, bool) {
	data, err := os.ReadFile(r.cfg.ExpandPath(r.cfg.MCPConfigPath))
	if err != nil {
		return "", false
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false
	}
	servers, _ := doc["mcpServers"].(map[string]any)
	entry, _ := servers[ServerEntryName].(map[string]any)
	env, _ := entry["env"].(map[string]any)
	key, _ := env[APIKeyEnvVar].(string)
	return key, key != ""
}
