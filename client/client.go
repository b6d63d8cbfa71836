// Package client is the JSON-over-HTTPS client for the Qveris platform.
// Each call carries its own timeout: short for auth and key management,
// longer for search, longest for tool execution.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authTimeout    = 10 * time.Second
	searchTimeout  = 30 * time.Second
	executeTimeout = 120 * time.Second

	maxResponseBytes = 4 << 20
)

// Client talks to one Qveris API host.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// do performs one request and returns the raw response body. Transport
// failures are classified; non-2xx statuses become *StatusError.
func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, bearer string, reqBody any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Status: resp.StatusCode, Message: messageFromBody(resp.StatusCode, data)}
	}
	return data, nil
}

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// Login exchanges credentials for a bearer token. The token may arrive
// top-level or nested, depending on the server version.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{
		"email":    email,
		"username": email,
		"password": password,
	}
	data, err := c.do(ctx, http.MethodPost, "/rpc/v1/auth/login", authTimeout, "", body)
	if err != nil {
		return "", err
	}

	var lr loginResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return "", fmt.Errorf("decoding login response: %w", ErrMalformedResponse)
	}
	if lr.Status != "success" {
		return "", fmt.Errorf("login status %q: %w", lr.Status, ErrMalformedResponse)
	}
	if lr.Token != "" {
		return lr.Token, nil
	}
	if lr.Data.AccessToken != "" {
		return lr.Data.AccessToken, nil
	}
	return "", fmt.Errorf("login response carries no token: %w", ErrMalformedResponse)
}

// UserInfo fetches the authenticated profile. The decoded document is
// returned whole so callers can probe its inconsistent shapes.
func (c *Client) UserInfo(ctx context.Context, bearer string) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/rpc/v1/auth/userinfo", authTimeout, bearer, nil)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", ErrMalformedResponse)
	}
	return doc, nil
}

// KeyRecord identifies one remote API key.
type KeyRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ListKeys returns the account's API keys in the server's order.
func (c *Client) ListKeys(ctx context.Context, bearer string) ([]KeyRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "/rpc/v1/auth/api-keys/list", authTimeout, bearer, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data struct {
			APIKeys []KeyRecord `json:"api_keys"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding key list: %w", ErrMalformedResponse)
	}
	return resp.Data.APIKeys, nil
}

// FullKey fetches the secret value of a key by name or id.
func (c *Client) FullKey(ctx context.Context, bearer, nameOrID string) (string, error) {
	path := "/rpc/v1/auth/api-keys/get-full-key/" + url.PathEscape(nameOrID)
	data, err := c.do(ctx, http.MethodGet, path, authTimeout, bearer, nil)
	if err != nil {
		return "", err
	}
	return apiKeyFromBody(data)
}

// CreateKey provisions a new API key with the given name.
func (c *Client) CreateKey(ctx context.Context, bearer, name string) (string, error) {
	body := map[string]string{"name": name}
	data, err := c.do(ctx, http.MethodPost, "/rpc/v1/auth/api-keys/create", authTimeout, bearer, body)
	if err != nil {
		return "", err
	}
	return apiKeyFromBody(data)
}

func apiKeyFromBody(data []byte) (string, error) {
	var resp struct {
		Data struct {
			APIKey string `json:"api_key"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding key response: %w", ErrMalformedResponse)
	}
	if resp.Data.APIKey == "" {
		return "", fmt.Errorf("key response carries no api_key: %w", ErrMalformedResponse)
	}
	return resp.Data.APIKey, nil
}

// ToolSummary is one search result.
type ToolSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SearchResponse is the common shape of the ranked-search and
// lookup-by-identifier endpoints.
type SearchResponse struct {
	Query    string        `json:"query"`
	Total    int           `json:"total"`
	Results  []ToolSummary `json:"results"`
	SearchID string        `json:"search_id"`
}

func decodeSearchResponse(data []byte) (*SearchResponse, error) {
	var resp struct {
		Query    string         `json:"query"`
		Total    int            `json:"total"`
		Results  *[]ToolSummary `json:"results"`
		SearchID string         `json:"search_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", ErrMalformedResponse)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("search response carries no results array: %w", ErrMalformedResponse)
	}
	return &SearchResponse{
		Query:    resp.Query,
		Total:    resp.Total,
		Results:  *resp.Results,
		SearchID: resp.SearchID,
	}, nil
}

// Search runs a ranked free-text search.
func (c *Client) Search(ctx context.Context, apiKey, query string, limit int, searchID, sessionID string) (*SearchResponse, error) {
	body := map[string]any{
		"query":      query,
		"limit":      limit,
		"search_id":  searchID,
		"session_id": sessionID,
	}
	data, err := c.do(ctx, http.MethodPost, "/api/v1/search", searchTimeout, apiKey, body)
	if err != nil {
		return nil, err
	}
	return decodeSearchResponse(data)
}

// ToolsByIDs looks up tools by exact identifier.
func (c *Client) ToolsByIDs(ctx context.Context, apiKey string, toolIDs []string, searchID, sessionID string) (*SearchResponse, error) {
	body := map[string]any{
		"tool_ids":   toolIDs,
		"search_id":  searchID,
		"session_id": sessionID,
	}
	data, err := c.do(ctx, http.MethodPost, "/api/v1/tools/by-ids", searchTimeout, apiKey, body)
	if err != nil {
		return nil, err
	}
	return decodeSearchResponse(data)
}

// Execute invokes a tool. The result envelope is opaque to this client
// and returned as raw JSON.
func (c *Client) Execute(ctx context.Context, apiKey, toolID string, parameters map[string]any, sessionID, searchID string) (json.RawMessage, error) {
	body := map[string]any{
		"tool":       toolID,
		"parameters": parameters,
		"session_id": sessionID,
	}
	if searchID != "" {
		body["search_id"] = searchID
	}
	path := "/rpc/v1/auth/tools/execute?tool_id=" + url.QueryEscape(toolID)
	data, err := c.do(ctx, http.MethodPost, path, executeTimeout, apiKey, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
