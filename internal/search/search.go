// Package search serves the read-model queries of the search service. It
// answers entirely from the local replica store, which the event
// consumers keep current.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/VictorYakushenko/Carsties/internal/replica"
)

const (
	defaultPageSize = 4
	maxPageSize     = 50
)

// Params narrows and orders a search.
type Params struct {
	SearchTerm string
	FilterBy   string // "live" (default), "finished", "endingSoon"
	OrderBy    string // "make", "new", default: auction end ascending
	Seller     string
	Winner     string
	PageNumber int
	PageSize   int
}

// Result is one page of matches.
type Result struct {
	Results    []*replica.Auction `json:"results"`
	PageCount  int                `json:"pageCount"`
	TotalCount int                `json:"totalCount"`
}

// Service queries the replica store.
type Service struct {
	store replica.Store
	now   func() time.Time
}

// New creates a search service over the given store.
func New(store replica.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Search filters, orders and pages the replicated auctions.
func (s *Service) Search(ctx context.Context, params Params) (*Result, error) {
	auctions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	matched := make([]*replica.Auction, 0, len(auctions))
	for _, auction := range auctions {
		if !matchesTerm(auction, params.SearchTerm) {
			continue
		}
		if params.Seller != "" && auction.Seller != params.Seller {
			continue
		}
		if params.Winner != "" && auction.Winner != params.Winner {
			continue
		}
		if !matchesFilter(auction, params.FilterBy, now) {
			continue
		}
		matched = append(matched, auction)
	}

	order(matched, params.OrderBy)

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	pageNumber := params.PageNumber
	if pageNumber <= 0 {
		pageNumber = 1
	}

	total := len(matched)
	pageCount := (total + pageSize - 1) / pageSize

	start := (pageNumber - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &Result{
		Results:    matched[start:end],
		PageCount:  pageCount,
		TotalCount: total,
	}, nil
}

func matchesTerm(auction *replica.Auction, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, field := range []string{auction.Make, auction.Model, auction.Color} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func matchesFilter(auction *replica.Auction, filterBy string, now time.Time) bool {
	switch filterBy {
	case "finished":
		return auction.AuctionEnd.Before(now)
	case "endingSoon":
		return auction.AuctionEnd.After(now) && auction.AuctionEnd.Before(now.Add(6*time.Hour))
	default:
		return auction.AuctionEnd.After(now)
	}
}

func order(auctions []*replica.Auction, orderBy string) {
	switch orderBy {
	case "make":
		sort.SliceStable(auctions, func(i, j int) bool {
			return auctions[i].Make < auctions[j].Make
		})
	case "new":
		sort.SliceStable(auctions, func(i, j int) bool {
			return auctions[i].UpdatedAt.After(auctions[j].UpdatedAt)
		})
	default:
		sort.SliceStable(auctions, func(i, j int) bool {
			return auctions[i].AuctionEnd.Before(auctions[j].AuctionEnd)
		})
	}
}
