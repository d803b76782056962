// Package aleph implements a client for the Aleph document catalog API.
// It covers the three operations the pipeline needs: fetching a single
// entity, resolving a collection by its foreign id, and streaming a
// collection's entities.
package aleph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotAnImage indicates an entity whose schema is not "Image". Callers
// skip these items; they are never fatal to a bulk run.
var ErrNotAnImage = errors.New("entity is not an image")

// StreamError indicates the entity stream failed mid-way. A failed stream
// aborts the crawl after draining; partial crawls must surface as failures.
type StreamError struct {
	CollectionID string
	Err          error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("aleph stream failed for collection %s: %v", e.CollectionID, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Client is an Aleph API client. It is constructed explicitly and passed
// to whatever needs it; there is no shared global instance.
type Client struct {
	url       string
	parsedURL *url.URL
	apiKey    string
	client    *http.Client
}

// NewClient creates a new Aleph client for the given instance base URL.
// The API key may be empty for public instances.
func NewClient(rawURL, apiKey string) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("aleph URL is required")
	}
	apiURL := strings.TrimSuffix(rawURL, "/") + "/api/2"
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Aleph URL: %w", err)
	}
	return &Client{
		url:       apiURL,
		parsedURL: parsed,
		apiKey:    apiKey,
		client:    http.DefaultClient,
	}, nil
}

// resolveURL builds a full URL from the base API URL and the given path
// segments. If the last segment contains a query string, it is split so
// JoinPath only receives the path portion.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// newRequest creates an authenticated request for the given endpoint.
func (c *Client) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}
	return req, nil
}

// readErrorBody reads the response body for error messages.
// Returns a placeholder if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// doGetJSON performs a GET request and unmarshals the JSON response.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}
