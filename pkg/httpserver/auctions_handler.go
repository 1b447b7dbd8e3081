package httpserver

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/mselser95/parlay-relay/internal/registry"
	"go.uber.org/zap"
)

// AuctionsHandler serves read-only snapshots of live auctions.
type AuctionsHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewAuctionsHandler creates a new auctions handler.
func NewAuctionsHandler(reg *registry.Registry, logger *zap.Logger) *AuctionsHandler {
	return &AuctionsHandler{
		registry: reg,
		logger:   logger,
	}
}

// AuctionSummary is one live auction in the snapshot response.
type AuctionSummary struct {
	AuctionID  string `json:"auction_id"`
	Wager      string `json:"wager"`
	Taker      string `json:"taker"`
	ChainID    int64  `json:"chain_id"`
	BidCount   int    `json:"bid_count"`
	DeadlineMs int64  `json:"deadline_ms"`
}

// AuctionsResponse represents the HTTP response for the auctions snapshot.
type AuctionsResponse struct {
	Auctions []AuctionSummary `json:"auctions"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleAuctions handles GET /api/auctions requests.
func (h *AuctionsHandler) HandleAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	live := h.registry.Live()

	summaries := make([]AuctionSummary, 0, len(live))
	for _, auction := range live {
		summaries = append(summaries, AuctionSummary{
			AuctionID:  auction.AuctionID,
			Wager:      auction.Request.Wager,
			Taker:      auction.Request.Taker,
			ChainID:    auction.Request.ChainID,
			BidCount:   len(auction.Bids),
			DeadlineMs: auction.DeadlineMs,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DeadlineMs < summaries[j].DeadlineMs
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(AuctionsResponse{Auctions: summaries})
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *AuctionsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
