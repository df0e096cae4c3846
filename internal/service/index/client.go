package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/domain/release"
	"github.com/toolpin/toolpin/internal/logger"
)

// errBadHTTPStatus is returned for any non-200 index response.
var errBadHTTPStatus = errors.New("unexpected http status")

// Client downloads and decodes the release index.
type Client struct {
	// url is the index endpoint.
	url string
	// scratchPath is where the raw index document is written each run.
	scratchPath string
	// httpClient performs the request with the configured timeout.
	httpClient *http.Client
}

// NewClient creates an index client for the given endpoint.
// The raw document is written to scratchPath on every successful fetch.
func NewClient(url, scratchPath string, timeout time.Duration) *Client {
	return &Client{
		url:         url,
		scratchPath: scratchPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves and decodes the release index.
// Any network failure or non-200 response is terminal; there is no retry.
func (c *Client) Fetch(ctx context.Context) (release.Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release index: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", c.url, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read release index: %w", err)
	}

	if err = os.WriteFile(c.scratchPath, data, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write index scratch copy: %w", err)
	}

	var idx release.Index
	if err = json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode release index: %w", err)
	}

	logger.DebugKV(ctx, "Fetched release index", "url", c.url, "versions", len(idx))

	return idx, nil
}
