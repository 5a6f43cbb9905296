package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"stopgame/internal/app"
	"stopgame/internal/domain"
	"stopgame/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Size of the send channel buffer
	sendBufferSize = 256

	// Inbound message budget per connection. Ready toggles and votes are
	// small and bursty; anything past this is a misbehaving client and
	// gets dropped, not disconnected.
	inboundRate  = rate.Limit(20)
	inboundBurst = 40
)

// Client is one server-side peer link: a websocket connection bound to
// a player id within a session.
type Client struct {
	conn     *websocket.Conn
	session  *app.GameSession
	playerID string
	send     chan []byte
	limiter  *rate.Limiter
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new peer link.
func NewClient(conn *websocket.Conn, session *app.GameSession, playerID string, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		session:  session,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
		limiter:  rate.NewLimiter(inboundRate, inboundBurst),
		logger:   logger,
	}
}

// PlayerID implements app.ClientConnection.
func (c *Client) PlayerID() string {
	return c.playerID
}

// Send implements app.ClientConnection.
func (c *Client) Send(msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "playerID", c.playerID)
		return nil
	}
}

// Close implements app.ClientConnection. Closing the send channel lets
// the write pump drain anything still queued (a final KICK, for one)
// before it tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.send)
	return nil
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.UnregisterClient(c.playerID)
		c.session.HandleDisconnect(c.playerID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.logger.Warn("inbound rate limit exceeded, dropping message", "playerID", c.playerID)
			continue
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// handleMessage decodes one inbound envelope and dispatches on its
// type. Malformed or unknown messages are logged and dropped; they
// never mutate state or crash the handler.
func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(protocol.ErrCodeInvalidMessage, "invalid message format")
		return
	}

	switch msg.Type {
	case protocol.MsgPlayerJoin:
		var payload protocol.JoinPayload
		if err := msg.Decode(&payload); err != nil || payload.Name == "" {
			c.sendError(protocol.ErrCodeInvalidMessage, "name is required")
			return
		}
		c.session.HandleJoin(c, payload.Name)

	case protocol.MsgPlayerUpdate:
		var payload protocol.UpdatePayload
		if err := msg.Decode(&payload); err != nil || payload.Name == "" {
			c.sendError(protocol.ErrCodeInvalidMessage, "name is required")
			return
		}
		c.session.HandleNameUpdate(c.playerID, payload.Name)

	case protocol.MsgPlayerReady:
		var payload protocol.ReadyPayload
		if err := msg.Decode(&payload); err != nil {
			c.sendError(protocol.ErrCodeInvalidMessage, "invalid ready payload")
			return
		}
		c.session.HandleReady(c.playerID, payload.IsReady)

	case protocol.MsgSettingsUpdate:
		var payload domain.Settings
		if err := msg.Decode(&payload); err != nil {
			c.sendError(protocol.ErrCodeInvalidMessage, "invalid settings payload")
			return
		}
		c.session.HandleSettingsUpdate(c.playerID, payload)

	case protocol.MsgAnswersSubmit:
		var payload protocol.AnswersPayload
		if err := msg.Decode(&payload); err != nil {
			c.sendError(protocol.ErrCodeInvalidMessage, "invalid answers payload")
			return
		}
		c.session.HandleAnswers(c.playerID, payload.Answers)

	case protocol.MsgVote:
		var payload protocol.VotePayload
		if err := msg.Decode(&payload); err != nil {
			c.sendError(protocol.ErrCodeInvalidMessage, "invalid vote payload")
			return
		}
		c.session.HandleVote(c.playerID, payload.CategoryIndex, payload.Answer, payload.VoteType)

	case protocol.MsgVotingDone:
		c.session.HandleVotingDone(c.playerID)

	case protocol.MsgNextRound:
		c.session.HandleNextRound(c.playerID)

	case protocol.MsgKickPlayer:
		var payload protocol.KickPlayerPayload
		if err := msg.Decode(&payload); err != nil || payload.PlayerID == "" {
			c.sendError(protocol.ErrCodeInvalidMessage, "invalid kick payload")
			return
		}
		c.session.HandleKickPlayer(c.playerID, payload.PlayerID, payload.Reason)

	default:
		c.logger.Debug("unknown message type dropped", "type", msg.Type, "playerID", c.playerID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(protocol.NewMessage(protocol.MsgError, &protocol.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
