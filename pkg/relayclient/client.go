// Package relayclient is the taker/maker side of the relay protocol: a
// reconnecting WebSocket client with request/ack correlation and
// per-auction subscription bookkeeping.
package relayclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mselser95/parlay-relay/pkg/types"
	"go.uber.org/zap"
)

// Update is one event delivered to the consumer: a new auction
// announcement, a bid-list refresh, or a reconnect marker. After a
// Reconnected update the consumer must treat retained bid state as stale;
// the relay is the only source of truth.
type Update struct {
	Started     *types.AuctionStartedPayload
	Bids        *types.AuctionBidsPayload
	Reconnected bool
}

// Config holds relay client configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	AckTimeout            time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	UpdateBufferSize      int
	Logger                *zap.Logger
}

// Client manages a single WebSocket connection to the relay.
type Client struct {
	url          string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       Config
	updates      chan Update
	pending      map[string]chan *types.Envelope
	pendingMu    sync.Mutex
	subscribed   map[string]bool
	mu           sync.RWMutex
	writeMu      sync.Mutex
	connected    atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New creates a new relay client.
func New(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 15 * time.Second
	}
	if cfg.UpdateBufferSize <= 0 {
		cfg.UpdateBufferSize = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Client{
		url:          cfg.URL,
		logger:       logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, logger),
		config:       cfg,
		updates:      make(chan Update, cfg.UpdateBufferSize),
		pending:      make(map[string]chan *types.Envelope),
		subscribed:   make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start connects to the relay and begins processing messages.
func (c *Client) Start() error {
	c.logger.Info("relay-client-starting", zap.String("url", c.url))

	err := c.connect(c.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.reconnectLoop()

	return nil
}

// connect establishes a WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	ActiveConnections.Set(1)

	c.logger.Info("relay-client-connected")

	return nil
}

// StartAuction submits an auction.start request and waits for the relay's
// ack up to the configured timeout. On timeout the attempt must be treated
// as failed, but the auction may still have been created server-side; a
// retry creates a distinct auction.
func (c *Client) StartAuction(ctx context.Context, req *types.AuctionRequest) (string, error) {
	env, err := c.request(ctx, types.MsgAuctionStart, req)
	if err != nil {
		return "", err
	}

	var ack types.AuctionAckPayload
	err = json.Unmarshal(env.Payload, &ack)
	if err != nil {
		return "", fmt.Errorf("unmarshal auction ack: %w", err)
	}
	if ack.Error != "" {
		return "", fmt.Errorf("auction rejected: %s", ack.Error)
	}
	if ack.AuctionID == "" {
		return "", fmt.Errorf("auction ack missing auctionId")
	}

	c.trackSubscription(ack.AuctionID)
	return ack.AuctionID, nil
}

// SubmitBid submits a bid and waits for the relay's ack.
func (c *Client) SubmitBid(ctx context.Context, bid *types.BidSubmission) error {
	env, err := c.request(ctx, types.MsgBidSubmit, bid)
	if err != nil {
		return err
	}

	var ack types.BidAckPayload
	err = json.Unmarshal(env.Payload, &ack)
	if err != nil {
		return fmt.Errorf("unmarshal bid ack: %w", err)
	}
	if ack.Error != "" {
		return fmt.Errorf("bid rejected: %s", ack.Error)
	}

	c.trackSubscription(bid.AuctionID)
	return nil
}

// Subscribe registers interest in bid updates for the given auctions.
func (c *Client) Subscribe(ctx context.Context, auctionIDs []string) error {
	if len(auctionIDs) == 0 {
		return nil
	}

	for _, id := range auctionIDs {
		c.trackSubscription(id)
	}

	return c.send(&types.Envelope{Type: types.MsgAuctionSubscribe}, &types.SubscribePayload{
		AuctionIDs: auctionIDs,
	})
}

// Updates returns the channel of auction announcements and bid refreshes.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// request sends an envelope with a fresh requestId and blocks for the
// matching ack, the ack timeout, or context cancellation, whichever is
// first.
func (c *Client) request(ctx context.Context, msgType string, payload any) (*types.Envelope, error) {
	requestID := uuid.New().String()

	reply := make(chan *types.Envelope, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = reply
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	err := c.send(&types.Envelope{Type: msgType, RequestID: requestID}, payload)
	if err != nil {
		return nil, err
	}

	RequestsTotal.WithLabelValues(msgType).Inc()

	timer := time.NewTimer(c.config.AckTimeout)
	defer timer.Stop()

	select {
	case env := <-reply:
		return env, nil
	case <-timer.C:
		AckTimeoutsTotal.Inc()
		return nil, fmt.Errorf("%s: no ack within %s", msgType, c.config.AckTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *Client) send(env *types.Envelope, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", env.Type, err)
	}
	env.Payload = body

	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !c.connected.Load() {
		return fmt.Errorf("not connected")
	}

	// gorilla connections allow one concurrent writer only.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err = conn.WriteMessage(websocket.TextMessage, frame)
	if err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}

	return nil
}

// readLoop reads frames and routes them: acks to the pending requester,
// announcements and bid lists to the updates channel.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("read-error", zap.Error(err))
			c.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		var env types.Envelope
		err = json.Unmarshal(message, &env)
		if err != nil {
			c.logger.Debug("unparseable-message",
				zap.Error(err),
				zap.Int("bytes", len(message)))
			continue
		}

		MessagesReceivedTotal.WithLabelValues(env.Type).Inc()

		if env.RequestID != "" {
			c.pendingMu.Lock()
			reply, ok := c.pending[env.RequestID]
			c.pendingMu.Unlock()
			if ok {
				reply <- &env
				continue
			}
		}

		c.routeUpdate(&env)
	}
}

func (c *Client) routeUpdate(env *types.Envelope) {
	var update Update

	switch env.Type {
	case types.MsgAuctionStarted:
		var payload types.AuctionStartedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Debug("unmarshal-auction-started-error", zap.Error(err))
			return
		}
		update.Started = &payload

	case types.MsgAuctionBids:
		var payload types.AuctionBidsPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Debug("unmarshal-auction-bids-error", zap.Error(err))
			return
		}
		update.Bids = &payload

	default:
		return
	}

	select {
	case c.updates <- update:
	default:
		c.logger.Warn("update-channel-full", zap.String("type", env.Type))
		UpdatesDroppedTotal.Inc()
	}
}

// reconnectLoop re-establishes the connection when it drops, resubscribes,
// and emits a Reconnected update so consumers reset their aggregation.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if c.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		c.logger.Warn("connection-lost-initiating-reconnect")

		err := c.reconnectMgr.Reconnect(c.ctx, c.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			c.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		select {
		case c.updates <- Update{Reconnected: true}:
		default:
		}

		err = c.resubscribeAll()
		if err != nil {
			c.logger.Error("resubscribe-failed", zap.Error(err))
			c.connected.Store(false)
			continue
		}

		c.logger.Info("reconnection-complete-restarting-read-loop")

		c.wg.Add(1)
		go c.readLoop()
	}
}

func (c *Client) trackSubscription(auctionID string) {
	c.mu.Lock()
	c.subscribed[auctionID] = true
	c.mu.Unlock()
}

func (c *Client) resubscribeAll() error {
	c.mu.RLock()
	auctionIDs := make([]string, 0, len(c.subscribed))
	for id := range c.subscribed {
		auctionIDs = append(auctionIDs, id)
	}
	c.mu.RUnlock()

	if len(auctionIDs) == 0 {
		return nil
	}

	err := c.send(&types.Envelope{Type: types.MsgAuctionSubscribe}, &types.SubscribePayload{
		AuctionIDs: auctionIDs,
	})
	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	c.logger.Info("resubscribed-to-auctions", zap.Int("count", len(auctionIDs)))

	return nil
}

// Close gracefully closes the relay client.
func (c *Client) Close() error {
	c.logger.Info("closing-relay-client")

	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()

	close(c.updates)

	ActiveConnections.Set(0)

	c.logger.Info("relay-client-closed")

	return nil
}
