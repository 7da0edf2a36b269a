// Package solr provides the client for the external search index:
// record writes, deletes, stored-field queries and query-string
// escaping.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/logger"
)

// Indexer is the index contract the orchestrator depends on.
type Indexer interface {
	// Index submits one record. Write failures are logged, not raised.
	Index(ctx context.Context, record domain.Record) error
	// Delete removes the record with the given unique id.
	Delete(ctx context.Context, uniqueID string) error
	// Search runs a query and returns the matching stored documents.
	// fl optionally restricts the returned fields.
	Search(ctx context.Context, query string, fl []string) ([]map[string]any, error)
}

// Client talks to a Solr server over its JSON update and select APIs.
type Client struct {
	base   string
	client *http.Client
	log    logger.Interface
}

// Ensure Client implements Indexer.
var _ Indexer = (*Client)(nil)

// NewClient creates an index client for the given base URL.
func NewClient(base string, client *http.Client, log logger.Interface) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: client,
		log:    log.WithComponent("solr"),
	}
}

// Index POSTs a one-element array containing the record to the update
// handler. A non-2xx response is logged but not raised; the index
// deduplicates by primary key, so retried writes are harmless.
func (c *Client) Index(ctx context.Context, record domain.Record) error {
	return c.update(ctx, []domain.Record{record})
}

// Delete POSTs a delete-by-id command to the update handler. Non-2xx
// responses are logged but not raised.
func (c *Client) Delete(ctx context.Context, uniqueID string) error {
	return c.update(ctx, map[string]any{"delete": map[string]any{"id": uniqueID}})
}

// update sends a JSON payload to the update handler with an immediate
// commit.
func (c *Client) update(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update payload: %w", err)
	}

	updateURL := c.base + "/update?commit=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, updateURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("index update failed", "url", updateURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("index update rejected",
			"url", updateURL,
			"status", resp.StatusCode,
			"response", string(detail),
		)
	}
	return nil
}

// selectResponse is the subset of the select handler's JSON response
// the client reads.
type selectResponse struct {
	Response struct {
		Docs []map[string]any `json:"docs"`
	} `json:"response"`
}

// Search GETs the select handler and returns response.docs. A non-2xx
// response raises an index error.
func (c *Client) Search(ctx context.Context, query string, fl []string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("wt", "json")
	if len(fl) > 0 {
		params.Set("fl", strings.Join(fl, ","))
	}
	selectURL := c.base + "/select?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, selectURL, http.NoBody)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindIndex, selectURL, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindIndex, selectURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sierrors.NewURL(sierrors.KindIndex, selectURL, "search returned status %d", resp.StatusCode)
	}

	var parsed selectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sierrors.Wrap(sierrors.KindIndex, selectURL, err)
	}
	return parsed.Response.Docs, nil
}

// specialChars are the query-syntax characters Escape protects,
// backslash first so the backslashes added for the other characters are
// not escaped again.
var specialChars = []string{
	`\`, `+`, `-`, `&`, `|`, `!`, `(`, `)`, `{`, `}`, `[`, `]`, `^`, `"`, `~`, `*`, `?`, `:`, `/`,
}

// Escape backslash-escapes the characters that carry meaning in the
// index's query syntax, so a literal value can be embedded in a query.
func Escape(value string) string {
	for _, ch := range specialChars {
		value = strings.ReplaceAll(value, ch, `\`+ch)
	}
	return value
}
