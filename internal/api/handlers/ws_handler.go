package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	"github.com/nikzan/Multimodal-Support-System/internal/services"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type WSHandler struct {
	tickets  services.TicketService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(tickets services.TicketService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		tickets: tickets,
		redis:   rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// TicketWS streams a ticket's live events (new messages, refreshed
// suggestions, closure) to the widget or dashboard. The socket is read-only
// for the client; mutations go through the REST endpoints.
func (h *WSHandler) TicketWS(c *gin.Context) {
	ticketID := c.Param("ticket_id")
	if ticketID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.TicketWS", "missing ticket_id", nil))
		return
	}

	if _, err := h.tickets.Get(c.Request.Context(), ticketID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx,
		notify.MessageCreatedTopic(ticketID),
		notify.SuggestionTopic(ticketID),
		notify.TicketClosedTopic(ticketID),
	)
	defer pubsub.Close()

	// reader: drain control frames and detect disconnect
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload expected JSON string)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
