package selstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// HTTPStore persists selections in a remote key-value service, one node
// per document key under the selections prefix.
type HTTPStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPStore creates a client for the KV service. apiKey may be empty
// for unauthenticated services.
func NewHTTPStore(baseURL, apiKey string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// selectionNode is the wire shape of one stored selection.
type selectionNode struct {
	Tags []string `json:"tags"`
}

func (s *HTTPStore) Load(ctx context.Context, key string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.nodeURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.auth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("load selection %s: status %d: %s", key, resp.StatusCode, string(body))
	}

	var node selectionNode
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return node.Tags, nil
}

func (s *HTTPStore) Save(ctx context.Context, key string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	body, err := json.Marshal(selectionNode{Tags: tags})
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.nodeURL(key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("save selection %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}
	return nil
}

func (s *HTTPStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *HTTPStore) nodeURL(key string) string {
	return s.baseURL + "/kv/selections/" + url.PathEscape(key)
}

func (s *HTTPStore) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
