package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // bytes; clients only send pongs
	sendBufferSize = 256              // messages in each client send channel
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte // buffered outbound message queue
	userID    uuid.UUID   // zero-value = anonymous
	auctionID uuid.UUID   // zero-value = every auction
}

// outbound is a serialised message and the auction it concerns.
type outbound struct {
	auctionID uuid.UUID
	data      []byte
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

// Hub maintains the set of active clients and routes auction events to the
// clients watching that auction. Run() must be called in a dedicated
// goroutine before ServeWs is used.
type Hub struct {
	// Registered clients and their concurrency guard.
	mu      sync.RWMutex
	clients map[*Client]bool

	// channels consumed by Run()
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	// verifier is optional; without it all connections are anonymous.
	verifier *auth.Verifier
	logger   *slog.Logger

	// upgrader is safe for concurrent use after construction.
	upgrader websocket.Upgrader
}

// NewHub creates a Hub ready to be started with Run().
func NewHub(verifier *auth.Verifier, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		verifier:   verifier,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true // dev mode: allow all
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Run: hub event loop
// ──────────────────────────────────────────────────────────────────────────────

// Run processes registration, unregistration, and broadcast events
// sequentially until ctx is cancelled. Call it once as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if client.auctionID != uuid.Nil && client.auctionID != msg.auctionID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client's buffer full; drop the message for this client.
					// The writePump will detect a stalled connection separately.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs: HTTP to WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection and starts the
// read/write pumps. ?auction_id= narrows the feed to one auction; ?token=
// optionally authenticates the caller.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	var auctionID uuid.UUID
	if raw := r.URL.Query().Get("auction_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid auction_id", http.StatusBadRequest)
			return
		}
		auctionID = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws.ServeWs: upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		auctionID: auctionID,
	}

	if token := r.URL.Query().Get("token"); token != "" && h.verifier != nil {
		p, err := h.verifier.Parse(token)
		if err != nil {
			h.SendError(client, "token_invalid", "token rejected, continuing anonymously")
		} else {
			client.userID = p.UserID
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeDeadline))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the client's send channel and writes messages to the
// WebSocket connection.  It also sends ping frames every pingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the WebSocket connection.  Only pong messages
// are handled (they reset the read deadline).  All other inbound messages are
// discarded; this is a server-push-only protocol.  When the connection drops
// the client is unregistered.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws.readPump: unexpected close", "user_id", c.userID, "err", err)
			}
			return
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Notifier implementation
// ──────────────────────────────────────────────────────────────────────────────

// BidPlaced implements service.Notifier.
func (h *Hub) BidPlaced(_ context.Context, a *domain.Auction, b *domain.Bid) {
	now := time.Now().UTC()
	h.broadcastJSON(a.ID, BidPlacedMessage{
		Type:            MsgTypeBidPlaced,
		AuctionID:       a.ID,
		BidID:           b.ID,
		BidderID:        b.BidderID,
		BidderName:      b.BidderName,
		Amount:          b.Amount,
		TotalBids:       a.TotalBids,
		EndTime:         a.EndTime,
		TimeLeftSeconds: int64(a.TimeLeft(now).Seconds()),
		Timestamp:       now,
	})
}

// AuctionCompleted implements service.Notifier.
func (h *Hub) AuctionCompleted(_ context.Context, a *domain.Auction, winnerID *uuid.UUID) {
	h.broadcastJSON(a.ID, AuctionCompletedMessage{
		Type:       MsgTypeAuctionCompleted,
		AuctionID:  a.ID,
		HasWinner:  winnerID != nil,
		WinnerID:   winnerID,
		FinalPrice: a.CurrentHighestBid,
		TotalBids:  a.TotalBids,
		Timestamp:  time.Now().UTC(),
	})
}

// broadcastJSON is the common marshalling path.
func (h *Hub) broadcastJSON(auctionID uuid.UUID, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("ws.Hub: marshal error", "err", err)
		return
	}
	select {
	case h.broadcast <- outbound{auctionID: auctionID, data: data}:
	default:
		h.logger.Warn("ws.Hub: broadcast channel full, message dropped", "auction_id", auctionID)
	}
}

// SendError writes an error message directly to one client's send channel.
func (h *Hub) SendError(client *Client, code, message string) {
	data, err := json.Marshal(ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}
