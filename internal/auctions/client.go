// Package auctions talks to the authoritative auction service. Only the
// read contract lives here: a single-auction lookup used by the resolver's
// fallback path and a bulk listing used by startup reconciliation.
package auctions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/VictorYakushenko/Carsties/internal/replica"
)

// ErrNotFound means the authoritative service answered definitively that
// the auction does not exist right now. Callers may still retry: a
// just-created auction can be not-yet-visible for a short window.
var ErrNotFound = errors.New("auction not found at authoritative service")

// Client is the read contract of the authoritative auction service.
type Client interface {
	GetAuction(ctx context.Context, id string) (*replica.Auction, error)
	ListAuctions(ctx context.Context) ([]*replica.Auction, error)
}

// HTTPClient implements Client over the auction service's REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the auction service at baseURL,
// e.g. "http://auction-svc:7001".
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetAuction fetches a single auction. A 404 maps to ErrNotFound; any
// transport or server error is returned as-is for the retry policy to
// classify.
func (c *HTTPClient) GetAuction(ctx context.Context, id string) (*replica.Auction, error) {
	url := fmt.Sprintf("%s/api/auctions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("auction service returned status %d", resp.StatusCode)
	}

	var auction replica.Auction
	if err := json.NewDecoder(resp.Body).Decode(&auction); err != nil {
		return nil, fmt.Errorf("failed to decode auction: %w", err)
	}
	return &auction, nil
}

// ListAuctions fetches every auction currently known to the authoritative
// service.
func (c *HTTPClient) ListAuctions(ctx context.Context) ([]*replica.Auction, error) {
	url := fmt.Sprintf("%s/api/auctions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auction service returned status %d", resp.StatusCode)
	}

	var auctions []*replica.Auction
	if err := json.NewDecoder(resp.Body).Decode(&auctions); err != nil {
		return nil, fmt.Errorf("failed to decode auctions: %w", err)
	}
	return auctions, nil
}
