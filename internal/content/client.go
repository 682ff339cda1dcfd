// Package content is a client for a hosted headless content store exposing
// the Sanity HTTP API: GROQ queries over schema-defined documents plus
// field-level patch mutations.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNoWriteToken means a mutation was attempted without a write credential.
	ErrNoWriteToken = errors.New("content: write token is not configured")
	// ErrRevisionMismatch means a patch guarded by IfRevisionID lost a race.
	ErrRevisionMismatch = errors.New("content: document revision mismatch")
)

// Client talks to one dataset of the content store.
type Client struct {
	baseURL    string
	dataset    string
	apiVersion string
	readToken  string
	writeToken string
	http       *http.Client
}

func NewClient(baseURL, dataset, apiVersion, readToken, writeToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dataset:    dataset,
		apiVersion: "v" + strings.TrimPrefix(apiVersion, "v"),
		readToken:  readToken,
		writeToken: writeToken,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// HasWriteToken reports whether mutations can be issued at all.
func (c *Client) HasWriteToken() bool {
	return c.writeToken != ""
}

func (c *Client) queryURL() string {
	return fmt.Sprintf("%s/%s/data/query/%s", c.baseURL, c.apiVersion, c.dataset)
}

func (c *Client) mutateURL() string {
	return fmt.Sprintf("%s/%s/data/mutate/%s?returnDocuments=true", c.baseURL, c.apiVersion, c.dataset)
}

type queryEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// Fetch runs a GROQ query and returns the raw result. Params are exposed to
// the query as $name. A query with no matches yields JSON null, not an error.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]any) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode query param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL()+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	c.authorize(req, false)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query content store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("query", resp)
	}

	var envelope queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return envelope.Result, nil
}

// CreatedDocument is the store's echo of a freshly created document.
type CreatedDocument struct {
	ID     string
	Rev    string
	Fields map[string]any
}

// Create persists a new document. The doc must carry a _type field.
func (c *Client) Create(ctx context.Context, doc map[string]any) (CreatedDocument, error) {
	results, err := c.mutate(ctx, []map[string]any{{"create": doc}})
	if err != nil {
		return CreatedDocument{}, err
	}
	if len(results) == 0 {
		return CreatedDocument{}, fmt.Errorf("content: create returned no result")
	}
	created := CreatedDocument{ID: results[0].ID, Fields: results[0].Document}
	if rev, ok := results[0].Document["_rev"].(string); ok {
		created.Rev = rev
	}
	return created, nil
}

type mutationResult struct {
	ID       string         `json:"id"`
	Document map[string]any `json:"document"`
}

type mutateEnvelope struct {
	TransactionID string           `json:"transactionId"`
	Results       []mutationResult `json:"results"`
}

func (c *Client) mutate(ctx context.Context, mutations []map[string]any) ([]mutationResult, error) {
	if !c.HasWriteToken() {
		return nil, ErrNoWriteToken
	}

	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, fmt.Errorf("encode mutations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mutateURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, true)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mutate content store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrRevisionMismatch
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("mutate", resp)
	}

	var envelope mutateEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode mutate response: %w", err)
	}
	return envelope.Results, nil
}

func (c *Client) authorize(req *http.Request, write bool) {
	token := c.readToken
	if write || token == "" {
		token = c.writeToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Ping verifies the store answers queries.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Fetch(ctx, "count(*[false])", nil)
	return err
}

func apiError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Error.Description != "" {
			return fmt.Errorf("content %s: %s", op, parsed.Error.Description)
		}
		if parsed.Message != "" {
			return fmt.Errorf("content %s: %s", op, parsed.Message)
		}
	}
	return fmt.Errorf("content %s: status %d", op, resp.StatusCode)
}
