package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/parlay-relay/internal/registry"
	"github.com/mselser95/parlay-relay/internal/storage"
	"github.com/mselser95/parlay-relay/pkg/types"
)

const (
	testResolver = "0x1111111111111111111111111111111111111111"
	testTaker    = "0x2222222222222222222222222222222222222222"
	testMaker    = "0x3333333333333333333333333333333333333333"
	testSig      = "0xdeadbeefdeadbeefdeadbeef"
)

// captureStorage records audit writes on a channel for test assertions.
type captureStorage struct {
	stored chan *storage.AcceptedBid
}

func newCaptureStorage() *captureStorage {
	return &captureStorage{stored: make(chan *storage.AcceptedBid, 16)}
}

func (c *captureStorage) StoreBid(ctx context.Context, rec *storage.AcceptedBid) error {
	c.stored <- rec
	return nil
}

func (c *captureStorage) Close() error { return nil }

type testEnv struct {
	hub   *Hub
	reg   *registry.Registry
	store *captureStorage
	wsURL string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := registry.New(registry.Config{})
	store := newCaptureStorage()

	hub, err := New(Config{
		Registry: reg,
		Storage:  store,
	})
	if err != nil {
		t.Fatalf("create hub: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})

	return &testEnv{
		hub:   hub,
		reg:   reg,
		store: store,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", e.wsURL, err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msgType, requestID string, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(&types.Envelope{Type: msgType, RequestID: requestID, Payload: body})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	err = conn.WriteMessage(websocket.TextMessage, frame)
	if err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *types.Envelope {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var env types.Envelope
	err = json.Unmarshal(raw, &env)
	if err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return &env
}

// readEnvelopeOfType reads frames until one of the wanted type arrives.
// Interleaved broadcasts of other types are skipped.
func readEnvelopeOfType(t *testing.T, conn *websocket.Conn, msgType string) *types.Envelope {
	t.Helper()

	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		if env.Type == msgType {
			return env
		}
	}
	t.Fatalf("no %s frame received", msgType)
	return nil
}

func validAuctionPayload() *types.AuctionRequest {
	return &types.AuctionRequest{
		Wager:             "1000000",
		PredictedOutcomes: []string{"0xaa", "0xbb"},
		Resolver:          testResolver,
		Taker:             testTaker,
		ChainID:           137,
	}
}

func validBidPayload(auctionID string) *types.BidSubmission {
	return &types.BidSubmission{
		AuctionID:      auctionID,
		Maker:          testMaker,
		MakerWager:     "2500000",
		MakerDeadline:  time.Now().Add(30 * time.Second).Unix(),
		MakerSignature: testSig,
		MakerNonce:     1,
	}
}

// startAuction drives the auction.start round-trip and returns the new id.
func startAuction(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	sendEnvelope(t, conn, types.MsgAuctionStart, "req-start", validAuctionPayload())

	env := readEnvelopeOfType(t, conn, types.MsgAuctionAck)
	if env.RequestID != "req-start" {
		t.Fatalf("ack requestId = %q, want req-start", env.RequestID)
	}

	var ack types.AuctionAckPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Error != "" {
		t.Fatalf("auction rejected: %s", ack.Error)
	}
	if ack.AuctionID == "" {
		t.Fatal("ack missing auctionId")
	}
	return ack.AuctionID
}

func TestAuctionStart_AckAndAnnouncement(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	auctionID := startAuction(t, conn)

	// The creator is connected, so it also receives the broadcast.
	started := readEnvelopeOfType(t, conn, types.MsgAuctionStarted)
	var payload types.AuctionStartedPayload
	if err := json.Unmarshal(started.Payload, &payload); err != nil {
		t.Fatalf("unmarshal started: %v", err)
	}
	if payload.AuctionID != auctionID {
		t.Errorf("announced auctionId = %q, want %q", payload.AuctionID, auctionID)
	}
	if payload.Wager != "1000000" {
		t.Errorf("announced wager = %q, want 1000000", payload.Wager)
	}
	if len(payload.PredictedOutcomes) != 2 {
		t.Errorf("announced %d outcomes, want 2", len(payload.PredictedOutcomes))
	}

	if _, ok := env.reg.Get(auctionID); !ok {
		t.Error("auction missing from registry")
	}
}

func TestAuctionStart_AnnouncedToOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	taker := env.dial(t)
	maker := env.dial(t)

	// Give the hub time to register both sessions before broadcasting.
	waitForSessions(t, env.hub, 2)

	auctionID := startAuction(t, taker)

	started := readEnvelopeOfType(t, maker, types.MsgAuctionStarted)
	var payload types.AuctionStartedPayload
	if err := json.Unmarshal(started.Payload, &payload); err != nil {
		t.Fatalf("unmarshal started: %v", err)
	}
	if payload.AuctionID != auctionID {
		t.Errorf("maker saw auctionId %q, want %q", payload.AuctionID, auctionID)
	}
}

func waitForSessions(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.sessions)
		hub.mu.RUnlock()
		if n >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d sessions", want)
}

func TestAuctionStart_InvalidRequestRejected(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	req := validAuctionPayload()
	req.Wager = "0"
	sendEnvelope(t, conn, types.MsgAuctionStart, "req-bad", req)

	ack := readEnvelopeOfType(t, conn, types.MsgAuctionAck)
	var payload types.AuctionAckPayload
	if err := json.Unmarshal(ack.Payload, &payload); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if payload.Error == "" {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(payload.Error, "Validation failed") {
		t.Errorf("error = %q, want validation message", payload.Error)
	}
	if payload.AuctionID != "" {
		t.Errorf("rejected ack carries auctionId %q", payload.AuctionID)
	}
}

func TestBidSubmit_AcceptedAndBroadcast(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	auctionID := startAuction(t, conn)
	readEnvelopeOfType(t, conn, types.MsgAuctionStarted)

	bid := validBidPayload(auctionID)
	sendEnvelope(t, conn, types.MsgBidSubmit, "req-bid", bid)

	ack := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var ackPayload types.BidAckPayload
	if err := json.Unmarshal(ack.Payload, &ackPayload); err != nil {
		t.Fatalf("unmarshal bid ack: %v", err)
	}
	if ackPayload.Error != "" {
		t.Fatalf("bid rejected: %s", ackPayload.Error)
	}
	if ackPayload.AuctionID != auctionID {
		t.Errorf("ack auctionId = %q, want %q", ackPayload.AuctionID, auctionID)
	}

	// The creator is subscribed and receives the refreshed bid list.
	bids := readEnvelopeOfType(t, conn, types.MsgAuctionBids)
	var bidsPayload types.AuctionBidsPayload
	if err := json.Unmarshal(bids.Payload, &bidsPayload); err != nil {
		t.Fatalf("unmarshal bids: %v", err)
	}
	if len(bidsPayload.Bids) != 1 {
		t.Fatalf("broadcast %d bids, want 1", len(bidsPayload.Bids))
	}
	if bidsPayload.Bids[0].Maker != testMaker {
		t.Errorf("bid maker = %q, want %q", bidsPayload.Bids[0].Maker, testMaker)
	}

	// The accepted bid reaches the audit trail.
	select {
	case rec := <-env.store.stored:
		if rec.Bid.AuctionID != auctionID {
			t.Errorf("audit record auctionId = %q, want %q", rec.Bid.AuctionID, auctionID)
		}
	case <-time.After(3 * time.Second):
		t.Error("accepted bid never reached storage")
	}
}

func TestBidSubmit_UnknownAuctionRejected(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	bid := validBidPayload("no-such-auction")
	sendEnvelope(t, conn, types.MsgBidSubmit, "req-bid", bid)

	ack := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var payload types.BidAckPayload
	if err := json.Unmarshal(ack.Payload, &payload); err != nil {
		t.Fatalf("unmarshal bid ack: %v", err)
	}
	if payload.Error != types.ReasonInvalidPayload {
		t.Errorf("error = %q, want %q", payload.Error, types.ReasonInvalidPayload)
	}
}

func TestBidSubmit_InvalidSignatureRejected(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	auctionID := startAuction(t, conn)
	readEnvelopeOfType(t, conn, types.MsgAuctionStarted)

	bid := validBidPayload(auctionID)
	bid.MakerSignature = "invalid"
	sendEnvelope(t, conn, types.MsgBidSubmit, "req-bid", bid)

	ack := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var payload types.BidAckPayload
	if err := json.Unmarshal(ack.Payload, &payload); err != nil {
		t.Fatalf("unmarshal bid ack: %v", err)
	}
	if payload.Error != types.ReasonInvalidBidSignature {
		t.Errorf("error = %q, want %q", payload.Error, types.ReasonInvalidBidSignature)
	}

	if len(env.reg.Bids(auctionID)) != 0 {
		t.Error("rejected bid reached the registry")
	}
}

func TestBidSubmit_DuplicateAckedIdempotently(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	auctionID := startAuction(t, conn)
	readEnvelopeOfType(t, conn, types.MsgAuctionStarted)

	bid := validBidPayload(auctionID)
	sendEnvelope(t, conn, types.MsgBidSubmit, "req-1", bid)
	first := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var firstAck types.BidAckPayload
	if err := json.Unmarshal(first.Payload, &firstAck); err != nil {
		t.Fatal(err)
	}
	if firstAck.Error != "" {
		t.Fatalf("first submission rejected: %s", firstAck.Error)
	}
	readEnvelopeOfType(t, conn, types.MsgAuctionBids)

	// Make sure the dedup mark is applied before retrying.
	env.hub.dedup.wait()

	sendEnvelope(t, conn, types.MsgBidSubmit, "req-2", bid)
	second := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var secondAck types.BidAckPayload
	if err := json.Unmarshal(second.Payload, &secondAck); err != nil {
		t.Fatal(err)
	}
	if secondAck.Error != "" {
		t.Errorf("duplicate rejected: %s", secondAck.Error)
	}

	if got := len(env.reg.Bids(auctionID)); got != 1 {
		t.Errorf("bid list grew to %d on duplicate, want 1", got)
	}
}

func TestMalformedFrame_ErrorAck(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	err := conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	if err != nil {
		t.Fatal(err)
	}

	ack := readEnvelopeOfType(t, conn, types.MsgBidAck)
	var payload types.BidAckPayload
	if err := json.Unmarshal(ack.Payload, &payload); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if payload.Error != types.ReasonInvalidPayload {
		t.Errorf("error = %q, want %q", payload.Error, types.ReasonInvalidPayload)
	}
}

func TestSubscribe_ResumesFromRegistrySnapshot(t *testing.T) {
	env := newTestEnv(t)
	taker := env.dial(t)

	auctionID := startAuction(t, taker)
	readEnvelopeOfType(t, taker, types.MsgAuctionStarted)

	sendEnvelope(t, taker, types.MsgBidSubmit, "req-bid", validBidPayload(auctionID))
	readEnvelopeOfType(t, taker, types.MsgBidAck)
	readEnvelopeOfType(t, taker, types.MsgAuctionBids)

	// A late subscriber gets the current bid list straight away.
	late := env.dial(t)
	sendEnvelope(t, late, types.MsgAuctionSubscribe, "", &types.SubscribePayload{
		AuctionIDs: []string{auctionID},
	})

	env2 := readEnvelopeOfType(t, late, types.MsgAuctionBids)
	var payload types.AuctionBidsPayload
	if err := json.Unmarshal(env2.Payload, &payload); err != nil {
		t.Fatalf("unmarshal bids: %v", err)
	}
	if payload.AuctionID != auctionID {
		t.Errorf("snapshot auctionId = %q, want %q", payload.AuctionID, auctionID)
	}
	if len(payload.Bids) != 1 {
		t.Errorf("snapshot has %d bids, want 1", len(payload.Bids))
	}
}

func TestBidKey(t *testing.T) {
	a := validBidPayload("auction-1")
	b := validBidPayload("auction-1")
	if bidKey(a) != bidKey(b) {
		t.Error("identical bids have different keys")
	}

	b.MakerNonce++
	if bidKey(a) == bidKey(b) {
		t.Error("different nonces share a key")
	}
}
