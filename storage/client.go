// Package storage is the client for the external blob storage service.
// This service stores opaque keys only; the blob service resolves them to
// time-limited read URLs on demand.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"complaints-service/config"

	"github.com/apex/log"
)

// Client resolves photo storage keys against the blob storage service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a storage client with a bounded request timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.StorageServiceURL,
		client:  &http.Client{Timeout: cfg.StorageTimeout},
	}
}

// UploadTarget asks the blob service for a write-capable upload URL and the
// opaque key the uploaded object will be stored under. Callers attach the
// key to a complaint or report; bytes never pass through this service.
func (c *Client) UploadTarget(ctx context.Context, filename, contentType string) (uploadURL, key string, err error) {
	endpoint := fmt.Sprintf("%s/api/v3/upload?filename=%s&content_type=%s",
		c.baseURL, url.QueryEscape(filename), url.QueryEscape(contentType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to call storage service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("storage service returned status %d for upload target", resp.StatusCode)
	}

	var result struct {
		UploadURL string `json:"upload_url"`
		Key       string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode storage service response: %w", err)
	}
	return result.UploadURL, result.Key, nil
}

// SignedURL resolves one opaque key to a time-limited read URL.
func (c *Client) SignedURL(ctx context.Context, key string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v3/sign?key=%s", c.baseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signing request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call storage service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage service returned status %d for key %s", resp.StatusCode, key)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode storage service response: %w", err)
	}
	return result.URL, nil
}

// ResolveAll resolves a key list best-effort, skipping keys that fail.
// Order of the resolved URLs follows the key order.
func (c *Client) ResolveAll(ctx context.Context, keys []string) []string {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		u, err := c.SignedURL(ctx, key)
		if err != nil {
			log.Warnf("Could not resolve photo key %s: %v", key, err)
			continue
		}
		urls = append(urls, u)
	}
	return urls
}
