// Package httputil holds the JSON response helpers shared by the HTTP
// handlers and a small client for reading them back.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultClient is used by GetJSON when no client is supplied.
var DefaultClient HTTPClient = &http.Client{Timeout: 10 * time.Second}

// maxResponseBytes bounds how much of a response body GetJSON will decode.
const maxResponseBytes = 16 << 20

// GetJSON fetches url and decodes the JSON body into v. Non-2xx responses
// are returned as errors carrying the server's error message when present.
func GetJSON(ctx context.Context, c HTTPClient, url string, v interface{}) error {
	if c == nil {
		c = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorBody
		if json.NewDecoder(body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", url, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
