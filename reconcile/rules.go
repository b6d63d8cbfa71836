package reconcile

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/store"
)

//go:embed templates/rules.mdc
var rulesPrompt string

//go:embed templates/tools.mdc
var staticRules string

// The generated block is delimited so user prose around it survives
// every rewrite. Replacing only the delimited region (rather than
// rebuilding the whole file) is the deliberate policy here.
const (
	blockBegin = "<!-- qveris:rules:begin -->"
	blockEnd   = "<!-- qveris:rules:end -->"

	rulesFrontMatter = "---\ndescription: Qveris tool usage guidance\nalwaysApply: true\n---\n\n"

	// StaticRulesFile is the companion file seeded whole from the
	// bundled document, never merged.
	StaticRulesFile = "qveris-tools.mdc"
)

func generatedBlock() string {
	return blockBegin + "\n" + strings.TrimSpace(rulesPrompt) + "\n" + blockEnd
}

// RulesPath resolves the configured rules file location.
func (r *Reconciler) RulesPath() string {
	return r.cfg.ExpandPath(r.cfg.RulesPath)
}

// EnsureRules makes the generated prompt block present in the rules
// file. It no-ops outside the cursor host or without a workspace. When
// the block is already present verbatim and force is false, the file
// is left untouched. Returns whether a write happened.
func (r *Reconciler) EnsureRules(force bool) (bool, error) {
	if r.cfg.Host != config.HostCursor || r.cfg.Workspace == "" {
		slog.Debug("rules file not managed for this host", "host", r.cfg.Host)
		return false, nil
	}
	path := r.RulesPath()

	existing := ""
	if data, err := os.ReadFile(path); err == nil {
		existing = string(data)
	}

	block := generatedBlock()
	if strings.Contains(existing, block) && !force {
		return false, nil
	}

	var content string
	switch {
	case existing == "":
		content = rulesFrontMatter + block + "\n"
	case hasBlockMarkers(existing):
		content = replaceBlock(existing, block)
	default:
		content = strings.TrimRight(existing, "\n") + "\n\n" + block + "\n"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := r.st.SetState(store.StateRulesVersion, r.version); err != nil {
		slog.Warn("recording rules version failed", "error", err)
	}
	return true, nil
}

func hasBlockMarkers(content string) bool {
	begin := strings.Index(content, blockBegin)
	end := strings.Index(content, blockEnd)
	return begin >= 0 && end > begin
}

// replaceBlock swaps the delimited region for the current block,
// leaving everything before and after intact.
func replaceBlock(content, block string) string {
	begin := strings.Index(content, blockBegin)
	end := strings.Index(content, blockEnd) + len(blockEnd)
	return content[:begin] + block + content[end:]
}

// EnsureStaticRules seeds the companion reference file from the bundled
// document. Unlike the managed rules file it is written whole: only
// when missing, or overwritten completely when force is set.
func (r *Reconciler) EnsureStaticRules(force bool) (bool, error) {
	if r.cfg.Host != config.HostCursor || r.cfg.Workspace == "" {
		return false, nil
	}
	path := filepath.Join(filepath.Dir(r.RulesPath()), StaticRulesFile)

	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(staticRules), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// Apply runs every writer. MCP failures and rules failures are
// aggregated into one *WriteError; reconciliation never reports partial
// success as total failure.
func (r *Reconciler) Apply(apiKey string, force bool) ([]string, error) {
	ok, err := r.EnsureMCPConfig(apiKey)

	werr, _ := err.(*WriteError)
	if _, rerr := r.EnsureRules(force); rerr != nil {
		if werr == nil {
			werr = &WriteError{OK: ok, Failed: map[string]error{}}
		}
		werr.Failed[r.RulesPath()] = rerr
	}
	if _, serr := r.EnsureStaticRules(force); serr != nil {
		if werr == nil {
			werr = &WriteError{OK: ok, Failed: map[string]error{}}
		}
		werr.Failed[filepath.Join(filepath.Dir(r.RulesPath()), StaticRulesFile)] = serr
	}

	if werr != nil {
		return ok, werr
	}
	return ok, nil
}
