package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dinocodesx/oalpaca/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// eventFeedClient forwards broker events to one WebSocket connection.
type eventFeedClient struct {
	conn   *websocket.Conn
	events <-chan events.Event[any]
	cancel context.CancelFunc
	server *Server
}

// handleChatEventsWebSocket upgrades the connection and streams chat
// events to the client. An optional chat_id query parameter narrows
// the feed to one chat; without it the client sees every chat's
// chunks and stream errors.
func (s *Server) handleChatEventsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	filters := []events.EventFilter{
		events.FilterByType(events.ChatStreamChunk, events.ChatStreamError),
	}
	if chatID := r.URL.Query().Get("chat_id"); chatID != "" {
		filters = append(filters, events.FilterByChatID(chatID))
	}

	// The request context dies when this handler returns, which is
	// immediately after the upgrade hijacks the connection. The
	// subscription lives as long as the pumps, so it hangs off a
	// background context cancelled on disconnect.
	ctx, cancel := context.WithCancel(context.Background())
	client := &eventFeedClient{
		conn:   conn,
		events: s.broker.Subscribe(ctx, filters...),
		cancel: cancel,
		server: s,
	}

	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames and pongs are
// processed. Inbound payloads are ignored; the feed is one-way.
func (c *eventFeedClient) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
		c.server.logger.Debug("websocket client disconnected")
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

// writePump forwards broker events and keeps the connection alive
// with periodic pings.
func (c *eventFeedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.server.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
