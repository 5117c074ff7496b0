package auctions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorYakushenko/Carsties/internal/replica"
)

// The HTTP client must serve both the resolver's single-lookup contract
// and reconciliation's bulk-listing contract.
var (
	_ Client         = (*HTTPClient)(nil)
	_ replica.Lister = (*HTTPClient)(nil)
)

func TestGetAuctionDecodesResponse(t *testing.T) {
	auction := &replica.Auction{
		ID:           "a1",
		Seller:       "alice",
		ReservePrice: 50,
		AuctionEnd:   time.Now().Add(time.Hour).UTC(),
		Make:         "Ford",
		UpdatedAt:    time.Now().UTC(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auctions/a1", r.URL.Path)
		json.NewEncoder(w).Encode(auction)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	got, err := client.GetAuction(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "alice", got.Seller)
	assert.Equal(t, "Ford", got.Make)
}

func TestGetAuctionMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.GetAuction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAuctionReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.GetAuction(context.Background(), "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a server error is retryable, not a definitive miss")
}

func TestListAuctionsDecodesResponse(t *testing.T) {
	auctions := []*replica.Auction{
		{ID: "a1", Make: "Ford"},
		{ID: "a2", Make: "Audi"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auctions", r.URL.Path)
		json.NewEncoder(w).Encode(auctions)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	got, err := client.ListAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "a2", got[1].ID)
}
