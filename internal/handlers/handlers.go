// Package handlers wires the service logic to HTTP. Authentication is out
// of scope; the bidder identity arrives in the X-Username header, the way
// the excluded gateway forwards it.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/VictorYakushenko/Carsties/internal/bids"
)

// BidHandler serves the bidding service's API.
type BidHandler struct {
	engine *bids.Engine
	logger *slog.Logger
}

// NewBidHandler creates the bid API handler.
func NewBidHandler(engine *bids.Engine, logger *slog.Logger) *BidHandler {
	return &BidHandler{engine: engine, logger: logger}
}

// Router builds the bidding service's route table.
func (h *BidHandler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", health("bid-service")).Methods("GET")
	router.HandleFunc("/api/bids", h.PlaceBid).Methods("POST")
	router.HandleFunc("/api/bids/{auctionId}", h.ListBids).Methods("GET")

	router.Use(loggingMiddleware(h.logger))
	router.Use(corsMiddleware)
	return router
}

// PlaceBid handles POST /api/bids?auctionId=...&amount=...
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID := r.URL.Query().Get("auctionId")
	if auctionID == "" {
		respondError(w, http.StatusBadRequest, "auctionId is required")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	bidder := r.Header.Get("X-Username")
	if bidder == "" {
		respondError(w, http.StatusUnauthorized, "bidder identity is required")
		return
	}

	bid, err := h.engine.PlaceBid(r.Context(), auctionID, bidder, amount)
	switch {
	case errors.Is(err, bids.ErrAuctionNotFound):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, bids.ErrSelfBid):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("bid placement failed", "auction_id", auctionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to place bid")
		return
	}

	respondJSON(w, http.StatusOK, bid)
}

// ListBids handles GET /api/bids/{auctionId}, most recent bid first.
func (h *BidHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionId"]

	list, err := h.engine.ListBids(r.Context(), auctionID)
	if err != nil {
		h.logger.Error("failed to list bids", "auction_id", auctionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list bids")
		return
	}
	if list == nil {
		list = []*bids.Bid{}
	}

	respondJSON(w, http.StatusOK, list)
}

func health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": service,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				"method", r.Method, "uri", r.RequestURI, "duration", time.Since(start))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Username")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
