package blob

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

// DefaultBaseURL is the blob REST endpoint used when none is configured.
const DefaultBaseURL = "https://blob.vercel-storage.com"

// HTTPStore talks to a blob REST API that serves objects at <base>/<key>
// and authenticates with a bearer token.
type HTTPStore struct {
	base   string
	token  string
	client *http.Client
}

// NewHTTPStore creates an HTTPStore. A zero timeout leaves the client
// without a deadline.
func NewHTTPStore(baseURL, token string, timeout time.Duration) *HTTPStore {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPStore{
		base:   strings.TrimSuffix(baseURL, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPStore) objectURL(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return s.base + "/" + strings.Join(parts, "/")
}

func (s *HTTPStore) do(ctx context.Context, method, key string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.objectURL(key), body)
	if err != nil {
		return nil, fmt.Errorf("blob: build %s %s: %w", method, key, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Content-Type", contentType)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: %s %s: %w", method, key, err)
	}
	return resp, nil
}

func statusError(method, key string, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("blob: %s %s: %w", method, key, ErrNotFound)
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("blob: %s %s: %s: %s", method, key, resp.Status, strings.TrimSpace(string(msg)))
}

// Get fetches the object stored at key.
func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, key, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, key, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// Put uploads data under key, replacing any existing object.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	resp, err := s.do(ctx, http.MethodPut, key, bytes.NewReader(data), contentType)
	if err != nil {
		return Object{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Object{}, statusError(http.MethodPut, key, resp)
	}
	obj := Object{Key: key, URL: s.objectURL(key), Size: len(data)}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.URL != "" {
		obj.URL = body.URL
	}
	return obj, nil
}

// Delete removes the object at key. Deleting a missing key returns ErrNotFound.
func (s *HTTPStore) Delete(ctx context.Context, key string) error {
	resp, err := s.do(ctx, http.MethodDelete, key, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodDelete, key, resp)
	}
	return nil
}
