package relay

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/mselser95/parlay-relay/internal/storage"
	"github.com/mselser95/parlay-relay/internal/validation"
	"github.com/mselser95/parlay-relay/pkg/types"
	"go.uber.org/zap"
)

// handleMessage dispatches one inbound frame. Every failure, including a
// panic in a handler, is converted into an error ack on this session's
// socket rather than crashing the connection.
func (h *Hub) handleMessage(s *session, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("message-handler-panic", zap.Any("panic", r))
			h.sendBidAck(s, "", "", fmt.Sprintf("internal error: %v", r))
		}
	}()

	var env types.Envelope
	err := json.Unmarshal(raw, &env)
	if err != nil {
		MessagesReceivedTotal.WithLabelValues("malformed").Inc()
		h.sendBidAck(s, "", "", types.ReasonInvalidPayload)
		return
	}

	MessagesReceivedTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case types.MsgAuctionStart:
		h.handleAuctionStart(s, &env)
	case types.MsgBidSubmit:
		h.handleBidSubmit(s, &env)
	case types.MsgAuctionSubscribe:
		h.handleSubscribe(s, &env)
	default:
		h.logger.Debug("unknown-message-type", zap.String("type", env.Type))
	}
}

// handleAuctionStart validates a taker request, creates the auction, acks
// the taker, and fans the new auction out to every connected maker.
func (h *Hub) handleAuctionStart(s *session, env *types.Envelope) {
	var req types.AuctionRequest
	err := json.Unmarshal(env.Payload, &req)
	if err != nil {
		h.sendAuctionAck(s, env.RequestID, "", types.ReasonInvalidPayload)
		return
	}

	err = validation.ValidateAuctionForMint(&req)
	if err != nil {
		h.logger.Debug("auction-rejected", zap.String("error", err.Error()))
		h.sendAuctionAck(s, env.RequestID, "", err.Error())
		return
	}

	auctionID := h.registry.Create(req)

	// The creator always sees its own bid stream.
	h.subscribe(s, auctionID)
	h.sendAuctionAck(s, env.RequestID, auctionID, "")

	started, err := marshalEnvelope(types.MsgAuctionStarted, "", &types.AuctionStartedPayload{
		AuctionID:         auctionID,
		Wager:             req.Wager,
		PredictedOutcomes: req.PredictedOutcomes,
		Resolver:          req.Resolver,
		Taker:             req.Taker,
		ChainID:           req.ChainID,
	})
	if err != nil {
		h.logger.Error("marshal-auction-started-error", zap.Error(err))
		return
	}

	h.broadcastAll(started)
	AuctionsAnnouncedTotal.Inc()
}

// handleBidSubmit runs the full validation cascade, appends the bid, acks
// the maker, and broadcasts the updated bid list. A retried duplicate
// submission is acked as success without growing the bid list.
func (h *Hub) handleBidSubmit(s *session, env *types.Envelope) {
	var bid types.BidSubmission
	err := json.Unmarshal(env.Payload, &bid)
	if err != nil {
		h.sendBidAck(s, env.RequestID, "", types.ReasonInvalidPayload)
		return
	}

	if h.dedup.seen(bidKey(&bid)) {
		h.logger.Debug("duplicate-bid-resubmission",
			zap.String("auction-id", bid.AuctionID),
			zap.String("maker", bid.Maker))
		DuplicateBidsTotal.Inc()
		h.subscribe(s, bid.AuctionID)
		h.sendBidAck(s, env.RequestID, bid.AuctionID, "")
		return
	}

	var auctionReq *types.AuctionRequest
	auction, ok := h.registry.Get(bid.AuctionID)
	if ok {
		auctionReq = &auction.Request
	}

	err = validation.BasicValidateBid(auctionReq, &bid, h.clock())
	if err != nil {
		BidAcksTotal.WithLabelValues("rejected").Inc()
		h.sendBidAck(s, env.RequestID, bid.AuctionID, types.Reason(err))
		return
	}

	stored, err := h.registry.AddBid(bid.AuctionID, bid)
	if err != nil {
		BidAcksTotal.WithLabelValues("rejected").Inc()
		h.sendBidAck(s, env.RequestID, bid.AuctionID, types.Reason(err))
		return
	}

	h.dedup.mark(bidKey(stored))

	// The submitter follows the auction it just bid on.
	h.subscribe(s, bid.AuctionID)

	BidAcksTotal.WithLabelValues("accepted").Inc()
	h.sendBidAck(s, env.RequestID, bid.AuctionID, "")

	h.broadcastBids(bid.AuctionID)

	h.recordBid(&storage.AcceptedBid{
		Bid:        *stored,
		AcceptedAt: h.clock(),
	})
}

// handleSubscribe registers interest in auctions and replies with the
// current bid list of each live one, so resubscribing clients resume from
// the registry's state.
func (h *Hub) handleSubscribe(s *session, env *types.Envelope) {
	var payload types.SubscribePayload
	err := json.Unmarshal(env.Payload, &payload)
	if err != nil {
		return
	}

	for _, auctionID := range payload.AuctionIDs {
		if auctionID == "" {
			continue
		}
		h.subscribe(s, auctionID)

		if _, ok := h.registry.Get(auctionID); ok {
			frame, err := marshalEnvelope(types.MsgAuctionBids, "", &types.AuctionBidsPayload{
				AuctionID: auctionID,
				Bids:      h.registry.Bids(auctionID),
			})
			if err == nil {
				s.enqueue(frame)
			}
		}
	}
}

// broadcastBids sends the full current bid list to an auction's
// subscribers.
func (h *Hub) broadcastBids(auctionID string) {
	frame, err := marshalEnvelope(types.MsgAuctionBids, "", &types.AuctionBidsPayload{
		AuctionID: auctionID,
		Bids:      h.registry.Bids(auctionID),
	})
	if err != nil {
		h.logger.Error("marshal-auction-bids-error", zap.Error(err))
		return
	}

	h.broadcastAuction(auctionID, frame)
}

func (h *Hub) sendAuctionAck(s *session, requestID, auctionID, errMsg string) {
	frame, err := marshalEnvelope(types.MsgAuctionAck, requestID, &types.AuctionAckPayload{
		AuctionID: auctionID,
		Error:     errMsg,
	})
	if err != nil {
		h.logger.Error("marshal-auction-ack-error", zap.Error(err))
		return
	}
	s.enqueue(frame)
}

func (h *Hub) sendBidAck(s *session, requestID, auctionID, errMsg string) {
	frame, err := marshalEnvelope(types.MsgBidAck, requestID, &types.BidAckPayload{
		AuctionID: auctionID,
		Error:     errMsg,
	})
	if err != nil {
		h.logger.Error("marshal-bid-ack-error", zap.Error(err))
		return
	}
	s.enqueue(frame)
}

func marshalEnvelope(msgType, requestID string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(&types.Envelope{
		Type:      msgType,
		RequestID: requestID,
		Payload:   body,
	})
}

// bidKey identifies a bid for duplicate detection: same maker, nonce, and
// signature against the same auction is the same submission.
func bidKey(bid *types.BidSubmission) string {
	return fmt.Sprintf("%s|%s|%d|%s", bid.AuctionID, bid.Maker, bid.MakerNonce, bid.MakerSignature)
}
