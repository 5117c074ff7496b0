package broadcast

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to websocket feed subscriptions.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a websocket handler over the manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Register mounts the feed routes on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/ws/auctions/{id}", h.Subscribe)
	router.HandleFunc("/stats/auctions/{id}", h.Stats).Methods("GET")
}

// Subscribe attaches the caller to an auction's live bid feed.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	if auctionID == "" {
		http.Error(w, "auction id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	// Queue the welcome before registration: once registered, the manager
	// owns the Send channel and may close it on disconnect.
	welcome := fmt.Sprintf(`{"type":"connected","auctionId":%q,"clientId":%q}`, auctionID, client.ID)
	client.Send <- []byte(welcome)

	h.manager.RegisterClient(client)
	client.StartReadPump(h.manager.UnregisterClient)
}

// Stats reports how many clients watch an auction.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	count := h.manager.SubscriberCount(auctionID)

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"auctionId":%q,"subscribers":%d}`, auctionID, count)
}
