// Package normalize provides access to the external variation-normalization
// capability. The service is consumed as a black box: free-text variation in,
// canonical VRS identifier out.
package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
)

// Normalizer resolves a variation description to a canonical variant id.
type Normalizer interface {
	Normalize(ctx context.Context, variation string) (string, error)
}

// ErrNonConcrete marks a variation the normalizer could parse but not pin to
// a concrete canonical identifier. Callers in the batch path skip such rows.
var ErrNonConcrete = errors.New("normalizer returned no concrete variation")

// Client is a Normalizer backed by a variation-normalizer REST deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the variation-normalizer endpoint, e.g.
// "https://normalize.cancervariants.org/variation".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Normalize resolves variation text to its VRS identifier.
func (c *Client) Normalize(ctx context.Context, variation string) (string, error) {
	endpoint := fmt.Sprintf("%s/normalize?q=%s", c.baseURL, url.QueryEscape(variation))

	var blob []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("variation-normalizer status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("variation-normalizer status %d", resp.StatusCode))
		}
		blob, err = io.ReadAll(resp.Body)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("normalize %q: %w", variation, err)
	}

	var result struct {
		Variation struct {
			ID string `json:"id"`
		} `json:"variation"`
	}
	if err := json.Unmarshal(blob, &result); err != nil {
		return "", fmt.Errorf("decode normalizer response for %q: %w", variation, err)
	}
	if result.Variation.ID == "" {
		return "", fmt.Errorf("normalize %q: %w", variation, ErrNonConcrete)
	}
	return result.Variation.ID, nil
}
