package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mizutanik/postbox/internal/model/message"
)

const (
	// readWait bounds how long the connection may stay silent; pongs
	// answering our pings reset it.
	readWait = 60 * time.Second
	// pingPeriod must be shorter than readWait.
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// feedEnvelope frames every feed message sent to the inbox page.
type feedEnvelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleFeed upgrades the connection and pushes every newly saved
// message to the inbox page until the client goes away.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[admin] feed upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Register()
	defer h.hub.Unregister(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	// The feed is push-only; the read loop just surfaces disconnects.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[admin] feed read: %v", err)
				}
				return
			}
		}
	}()

	if err := h.writeEnvelope(conn, feedEnvelope{Type: "connected", Timestamp: time.Now().Unix()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-sub:
			if !ok {
				// Hub closed; the server is shutting down.
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.writeEnvelope(conn, newMessageEnvelope(msg)); err != nil {
				return
			}
		}
	}
}

func newMessageEnvelope(msg message.Message) feedEnvelope {
	return feedEnvelope{
		Type:      "message",
		Data:      msg,
		Timestamp: time.Now().Unix(),
	}
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env feedEnvelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		log.Printf("[admin] feed write failed: %v", err)
		return err
	}
	return nil
}
