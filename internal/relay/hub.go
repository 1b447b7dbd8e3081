// Package relay is the WebSocket session layer between takers, makers, and
// the auction registry. It accepts auction.start and bid.submit messages,
// runs them through the validation cascade and the registry, acknowledges
// the submitter, and fans bid updates out to subscribers.
package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mselser95/parlay-relay/internal/registry"
	"github.com/mselser95/parlay-relay/internal/storage"
	"go.uber.org/zap"
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// Hub manages connected sessions and per-auction subscriptions. A slow
// subscriber only ever loses its own frames; bid processing never blocks on
// a subscriber's socket.
type Hub struct {
	registry *registry.Registry
	store    storage.Storage
	dedup    *dedupCache
	clock    registry.Clock
	logger   *zap.Logger

	sessions map[*session]bool
	subs     map[string]map[*session]bool // auctionID -> subscribers
	mu       sync.RWMutex

	register   chan *session
	unregister chan *session
	storeQueue chan *storage.AcceptedBid
	wg         sync.WaitGroup
}

// Config holds hub configuration.
type Config struct {
	Registry *registry.Registry
	Storage  storage.Storage
	DedupTTL time.Duration
	Clock    registry.Clock
	Logger   *zap.Logger
}

// New creates a hub. A nil dedup TTL disables nothing; it defaults to twice
// the registry's base auction lifetime.
func New(cfg Config) (*Hub, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dedupTTL := cfg.DedupTTL
	if dedupTTL <= 0 {
		dedupTTL = 2 * registry.DefaultTTL
	}

	dedup, err := newDedupCache(dedupTTL)
	if err != nil {
		return nil, err
	}

	return &Hub{
		registry:   cfg.Registry,
		store:      cfg.Storage,
		dedup:      dedup,
		clock:      clock,
		logger:     logger,
		sessions:   make(map[*session]bool),
		subs:       make(map[string]map[*session]bool),
		register:   make(chan *session),
		unregister: make(chan *session),
		storeQueue: make(chan *storage.AcceptedBid, 1024),
	}, nil
}

// Run drives session registration and the audit-trail writer until the
// context is cancelled. It should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) error {
	h.wg.Add(1)
	go h.storeLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.sessions {
				s.close()
				delete(h.sessions, s)
			}
			h.subs = make(map[string]map[*session]bool)
			h.mu.Unlock()

			h.wg.Wait()
			h.dedup.close()
			return ctx.Err()

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			total := len(h.sessions)
			h.mu.Unlock()

			ConnectedSessions.Set(float64(total))
			h.logger.Info("session-connected", zap.Int("total-sessions", total))

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.close()
			}
			for auctionID, set := range h.subs {
				delete(set, s)
				if len(set) == 0 {
					delete(h.subs, auctionID)
				}
			}
			total := len(h.sessions)
			h.mu.Unlock()

			ConnectedSessions.Set(float64(total))
			h.logger.Info("session-disconnected", zap.Int("total-sessions", total))
		}
	}
}

// HandleWS upgrades an HTTP request and registers the session.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws-upgrade-failed", zap.Error(err))
		return
	}

	s := newSession(h, conn)
	h.register <- s

	go s.writePump()
	go s.readPump()
}

// subscribe adds a session to an auction's subscriber set.
func (h *Hub) subscribe(s *session, auctionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[auctionID]
	if !ok {
		set = make(map[*session]bool)
		h.subs[auctionID] = set
	}
	set[s] = true
}

// broadcastAll enqueues a frame for every connected session.
func (h *Hub) broadcastAll(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions {
		s.enqueue(frame)
	}
}

// broadcastAuction enqueues a frame for every subscriber of one auction.
func (h *Hub) broadcastAuction(auctionID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[auctionID] {
		s.enqueue(frame)
	}
}

// recordBid hands an accepted bid to the audit trail without blocking the
// submit path.
func (h *Hub) recordBid(rec *storage.AcceptedBid) {
	if h.store == nil {
		return
	}
	select {
	case h.storeQueue <- rec:
	default:
		h.logger.Warn("store-queue-full-dropping-audit-record",
			zap.String("auction-id", rec.Bid.AuctionID))
		AuditRecordsDroppedTotal.Inc()
	}
}

func (h *Hub) storeLoop(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-h.storeQueue:
			err := h.store.StoreBid(ctx, rec)
			if err != nil {
				h.logger.Warn("store-bid-error", zap.Error(err))
			}
		}
	}
}
