package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 256
)

// ChatService is the slice of the engine a connected client may drive.
type ChatService interface {
	Send(ctx context.Context, roomID, memberID uint, text string) error
}

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendPayload struct {
	Text string `mapstructure:"text"`
}

type errorFrame struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Client is a middleman between one websocket connection and the hub. It
// subscribes to exactly one room topic.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages, written only by the hub.
	Send chan []byte

	topic    string
	roomID   uint
	memberID uint

	chat ChatService

	lastSeen int64 // unix nanos, atomic
}

func NewClient(hub *Hub, conn *websocket.Conn, chat ChatService, topic string, roomID, memberID uint) *Client {
	c := &Client{
		hub:      hub,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		topic:    topic,
		roomID:   roomID,
		memberID: memberID,
		chat:     chat,
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	atomic.StoreInt64(&c.lastSeen, time.Now().UnixNano())
}

// LastSeen is read by the hub's idle sweep.
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, atomic.LoadInt64(&c.lastSeen))
}

// ReadLoop pumps frames from the websocket connection into the engine.
// There is at most one reader per connection, all reads happen here.
func (c *Client) ReadLoop(ctx context.Context) {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				globals.AppLogger.Debug("websocket closed unexpectedly", "member_id", c.memberID, "error", err)
			}
			return
		}
		c.touch()
		frame := inboundFrame{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("bad frame")
			continue
		}
		switch frame.Event {
		case "send":
			var data map[string]interface{}
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				c.sendError("bad send payload")
				continue
			}
			payload := sendPayload{}
			if err := mapstructure.Decode(data, &payload); err != nil || payload.Text == "" {
				c.sendError("bad send payload")
				continue
			}
			if err := c.chat.Send(ctx, c.roomID, c.memberID, payload.Text); err != nil {
				c.sendError(err.Error())
			}

		case "ping":
			// application-level keepalive, just refreshes the sweep clock

		default:
			c.sendError("unknown event")
		}
	}
}

// sendError reports an engine error back on this connection only. Best
// effort: if the buffer is full the client is about to be dropped anyway.
func (c *Client) sendError(msg string) {
	data, err := json.Marshal(errorFrame{Event: "error", Error: msg})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// WriteLoop pumps hub broadcasts to the websocket connection and keeps the
// connection alive with pings. One writer per connection.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub dropped us
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
