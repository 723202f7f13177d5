package ws_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/domain"
	"github.com/evetabi/auction/internal/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, verifier *auth.Verifier) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(verifier, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func sampleAuction() *domain.Auction {
	return &domain.Auction{
		ID:                uuid.New(),
		Status:            domain.StatusActive,
		StartingPrice:     decimal.NewFromInt(10),
		CurrentHighestBid: decimal.NewFromInt(15),
		TotalBids:         1,
		EndTime:           time.Now().UTC().Add(time.Minute),
	}
}

func TestHub_FiltersByAuction(t *testing.T) {
	hub, srv := startHub(t, nil)
	watched := sampleAuction()
	other := sampleAuction()

	subscriber := dial(t, srv, "auction_id="+watched.ID.String())
	firehose := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ConnectedCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.BidPlaced(context.Background(), other, &domain.Bid{ID: uuid.New(), AuctionID: other.ID, Amount: decimal.NewFromInt(15)})
	bid := &domain.Bid{ID: uuid.New(), AuctionID: watched.ID, BidderName: "ann", Amount: decimal.NewFromInt(15)}
	hub.BidPlaced(context.Background(), watched, bid)

	// The subscriber skips the other auction and sees only its own.
	m := readJSON(t, subscriber)
	assert.Equal(t, "bid_placed", m["type"])
	assert.Equal(t, watched.ID.String(), m["auction_id"])
	assert.Equal(t, bid.ID.String(), m["bid_id"])
	assert.Equal(t, "15", m["amount"])

	// The unfiltered connection sees both in order.
	assert.Equal(t, other.ID.String(), readJSON(t, firehose)["auction_id"])
	assert.Equal(t, watched.ID.String(), readJSON(t, firehose)["auction_id"])
}

func TestHub_AuctionCompleted(t *testing.T) {
	hub, srv := startHub(t, nil)
	a := sampleAuction()
	conn := dial(t, srv, "auction_id="+a.ID.String())
	require.Eventually(t, func() bool { return hub.ConnectedCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	winner := uuid.New()
	hub.AuctionCompleted(context.Background(), a, &winner)

	m := readJSON(t, conn)
	assert.Equal(t, "auction_completed", m["type"])
	assert.Equal(t, true, m["has_winner"])
	assert.Equal(t, winner.String(), m["winner_id"])
	assert.Equal(t, "15", m["final_price"])
}

func TestHub_InvalidTokenStaysAnonymous(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Minute)
	hub, srv := startHub(t, verifier)
	conn := dial(t, srv, "token=garbage")

	m := readJSON(t, conn)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "token_invalid", m["code"])

	require.Eventually(t, func() bool { return hub.ConnectedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_RejectsBadAuctionID(t *testing.T) {
	_, srv := startHub(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?auction_id=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ConnectedCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectedCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_ConnectAfterStopIsClosed(t *testing.T) {
	hub := ws.NewHub(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r)
		close(served)
	}))
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "")
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWs blocked on a stopped hub")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
	assert.Equal(t, 0, hub.ConnectedCount())
}
