// ABOUTME: Keyed document store client for agent working-memory documents.
// ABOUTME: Fetches JSON documents over HTTP; absence is a result, not an error.

package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Thought is a single liveness record written by an agent. Timestamp is
// milliseconds since epoch.
type Thought struct {
	Timestamp int64 `json:"timestamp"`
}

// Document is the stored working-memory document shape. The thoughts
// collection is kept raw so a malformed value reads as "no data" instead of
// failing the fetch.
type Document struct {
	Value struct {
		Thoughts json.RawMessage `json:"thoughts"`
	} `json:"value"`
}

// Thoughts decodes the stored liveness collection. Returns nil when the
// collection is absent or not a well-formed array.
func (d *Document) Thoughts() []Thought {
	if len(d.Value.Thoughts) == 0 {
		return nil
	}
	var thoughts []Thought
	if err := json.Unmarshal(d.Value.Thoughts, &thoughts); err != nil {
		return nil
	}
	return thoughts
}

// Store retrieves working-memory documents by collection and document id.
// A missing document is reported as (nil, nil).
type Store interface {
	Get(ctx context.Context, collection, docID string) (*Document, error)
}

// HTTPStore talks to the document store's REST surface.
type HTTPStore struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewHTTPStore creates a store client for the given base URL. The auth token
// is optional and sent as a bearer token when present.
func NewHTTPStore(baseURL, authToken string) *HTTPStore {
	return &HTTPStore{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Get fetches a single document. A 404 response means the document does not
// exist and returns (nil, nil); any other non-200 response is an error.
func (s *HTTPStore) Get(ctx context.Context, collection, docID string) (*Document, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, url.PathEscape(collection), url.PathEscape(docID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching document %s/%s: %w", collection, docID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("document store returned status %d: %s", resp.StatusCode, string(body))
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document %s/%s: %w", collection, docID, err)
	}

	return &doc, nil
}
