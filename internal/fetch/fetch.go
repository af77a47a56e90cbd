// Package fetch retrieves the pipeline's three remote sources from the
// federal statistics office: commune mutations, geographic levels and the
// vote-results JSON.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultMutationsURL = "https://www.agvchapp.bfs.admin.ch/api/communes/mutations"
	defaultGeoLevelsURL = "https://sms.bfs.admin.ch/WcfBFSSpecificService.svc/AnonymousRest/communes/levels"
)

// Error represents a fetch error with a specific stage
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch error at %s stage: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(stage string, err error) *Error {
	return &Error{
		Stage: stage,
		Err:   err,
	}
}

// Client fetches from the BFS endpoints. The base URLs are exported so
// tests can point them at a local server.
type Client struct {
	MutationsURL string
	GeoLevelsURL string

	http *http.Client
}

// NewClient creates a client with the BFS endpoints and a 30 second timeout.
func NewClient() *Client {
	return &Client{
		MutationsURL: defaultMutationsURL,
		GeoLevelsURL: defaultGeoLevelsURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// get downloads the given URL and returns the response body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// The BFS endpoints reject requests without browser-like headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
