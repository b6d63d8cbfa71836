// Package search classifies queries and routes them to the matching
// Qveris endpoint, correlating every call with the installation's
// session identifier.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/qverisai/qveris-cli/client"
	"github.com/qverisai/qveris-cli/config"
	"github.com/qverisai/qveris-cli/internal/uuid"
	"github.com/qverisai/qveris-cli/store"
)

var (
	// ErrBlankQuery indicates an empty or whitespace-only query.
	ErrBlankQuery = errors.New("search query is empty")
	// ErrNotLoggedIn indicates no stored API key.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNoSession indicates the session identifier is missing. It is
	// generated at every activation, so absence is a fatal
	// configuration state, not a transient condition.
	ErrNoSession = errors.New("session identifier missing; restart the client")
)

// Tool identifiers are dot-separated paths of at least four segments.
// This is a heuristic over an opaque identifier format, kept as a
// policy constant so it can change without touching the dispatch code.
const (
	toolIDDelimiter   = "."
	minToolIDSegments = 4
)

// Dispatcher routes queries for one installation.
type Dispatcher struct {
	cfg *config.Config
	st  *store.Store
	cl  *client.Client
}

// New returns a dispatcher.
func New(cfg *config.Config, st *store.Store, cl *client.Client) *Dispatcher {
	return &Dispatcher{cfg: cfg, st: st, cl: cl}
}

// isToolID reports whether the query looks like a structured tool
// identifier rather than free text.
func isToolID(query string) bool {
	if strings.IndexFunc(query, unicode.IsSpace) >= 0 {
		return false
	}
	nonEmpty := 0
	for _, seg := range strings.Split(query, toolIDDelimiter) {
		if seg != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= minToolIDSegments
}

// Search dispatches one query. Structured identifiers go to the
// batch-lookup endpoint, free text to the ranked-search endpoint. The
// server's search_id, when returned, supersedes the generated one and
// is kept for the next Execute call.
func (d *Dispatcher) Search(ctx context.Context, query string) (*client.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrBlankQuery
	}

	apiKey, sessionID, err := d.callContext()
	if err != nil {
		return nil, err
	}
	searchID := uuid.New()

	var resp *client.SearchResponse
	if isToolID(query) {
		resp, err = d.cl.ToolsByIDs(ctx, apiKey, []string{query}, searchID, sessionID)
	} else {
		resp, err = d.cl.Search(ctx, apiKey, query, d.cfg.SearchLimit, searchID, sessionID)
	}
	if err != nil {
		return nil, err
	}

	if resp.SearchID != "" {
		searchID = resp.SearchID
	}
	if err := d.st.SetState(store.StateLastSearchID, searchID); err != nil {
		slog.Warn("persisting search id failed", "error", err)
	}
	return resp, nil
}

// Execute invokes a tool, carrying the session identifier and the last
// stored search correlation identifier when one exists.
func (d *Dispatcher) Execute(ctx context.Context, toolID string, parameters map[string]any) (json.RawMessage, error) {
	if strings.TrimSpace(toolID) == "" {
		return nil, fmt.Errorf("tool identifier: %w", ErrBlankQuery)
	}
	apiKey, sessionID, err := d.callContext()
	if err != nil {
		return nil, err
	}

	searchID, err := d.st.GetState(store.StateLastSearchID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return d.cl.Execute(ctx, apiKey, toolID, parameters, sessionID, searchID)
}

// callContext loads the stored API key and session identifier both
// search and execute require.
func (d *Dispatcher) callContext() (apiKey, sessionID string, err error) {
	apiKey, err = d.st.GetSecret(store.SlotAPIKey)
	if errors.Is(err, store.ErrNotFound) || (err == nil && apiKey == "") {
		return "", "", ErrNotLoggedIn
	}
	if err != nil {
		return "", "", err
	}

	sessionID, err = d.st.GetState(store.StateSessionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sessionID == "") {
		return "", "", ErrNoSession
	}
	if err != nil {
		return "", "", err
	}
	return apiKey, sessionID, nil
}
