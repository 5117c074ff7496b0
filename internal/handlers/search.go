package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/VictorYakushenko/Carsties/internal/search"
)

// SearchHandler serves the search service's API.
type SearchHandler struct {
	service *search.Service
	logger  *slog.Logger
}

// NewSearchHandler creates the search API handler.
func NewSearchHandler(service *search.Service, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Router builds the search service's route table. Extra routes (the
// websocket feed) can be mounted on the returned router.
func (h *SearchHandler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", health("search-service")).Methods("GET")
	router.HandleFunc("/api/search", h.Search).Methods("GET")

	router.Use(loggingMiddleware(h.logger))
	router.Use(corsMiddleware)
	return router
}

// Search handles GET /api/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := search.Params{
		SearchTerm: query.Get("searchTerm"),
		FilterBy:   query.Get("filterBy"),
		OrderBy:    query.Get("orderBy"),
		Seller:     query.Get("seller"),
		Winner:     query.Get("winner"),
		PageNumber: queryInt(query.Get("pageNumber"), 1),
		PageSize:   queryInt(query.Get("pageSize"), 4),
	}

	result, err := h.service.Search(r.Context(), params)
	if err != nil {
		h.logger.Error("search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func queryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
