package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/auxroom/auxroom/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live socket. It is created only after authentication
// succeeded, so every message read here comes from a verified user;
// frames arriving on a socket that never authenticated are never read
// because the pumps are never started.
type Client struct {
	connId string
	conn   *websocket.Conn
	srv    *SyncServer
	log    *log.Logger
	user   types.User
	clock  Clock

	send chan *Event

	stop     chan struct{}
	stopOnce sync.Once
	// cleanup must run exactly once, over every prior state
	cleanupOnce sync.Once

	mu     sync.Mutex
	roomId string
	room   *Room
}

func NewClient(connId string, user types.User, conn *websocket.Conn, srv *SyncServer, l *log.Logger) *Client {
	return &Client{
		connId: connId,
		conn:   conn,
		srv:    srv,
		log:    l,
		user:   user,
		clock:  srv.clock,
		send:   make(chan *Event, 256),
		stop:   make(chan struct{}),
	}
}

func (c *Client) ConnectionId() string {
	return c.connId
}

func (c *Client) User() types.User {
	return c.user
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for connection %q", c.connId)
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(event)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// writeMessage writes one frame with the write deadline applied.
// Returns false when the connection is no longer writable.
func (c *Client) writeMessage(msgType int, payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(msgType, payload); err != nil {
		c.log.Printf("write to connection %q: %v", c.connId, err)
		return false
	}

	return true
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for connection %q", c.connId)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueEvent(ErrInvalidMessage(0, c.clock.Now()))
			continue
		}

		msg.client = c
		c.dispatch(&msg)
	}
}

// dispatch routes one inbound frame by its type discriminator. Messages
// are processed in receipt order; replies are generated in order onto
// the send queue.
func (c *Client) dispatch(msg *ClientMessage) {
	switch msg.Type {
	case MsgPing:
		c.queueEvent(NewPong(msg.Time, c.clock.Now()))
	case MsgJoinRoom:
		select {
		case c.srv.joinChan <- msg:
		default:
			c.log.Println("joinChan full")
			c.queueEvent(ErrServiceUnavailable(msg.Id, c.clock.Now()))
		}
	case MsgLeaveRoom, MsgAddTrack, MsgVote, MsgUnvote,
		MsgPlay, MsgPause, MsgResume, MsgSkip, MsgStatus:
		r := c.getRoom()
		if r == nil {
			c.queueEvent(ErrRoomNotFound(msg.Id, c.clock.Now()))
			return
		}

		select {
		case r.cmdChan <- msg:
		default:
			c.log.Printf("cmdChan full for room %q", r.externalId)
			c.queueEvent(ErrServiceUnavailable(msg.Id, c.clock.Now()))
		}
	default:
		c.queueEvent(ErrInvalidMessage(msg.Id, c.clock.Now()))
	}
}

func (c *Client) queueEvent(event *Event) bool {
	select {
	case c.send <- event:
	default:
		c.log.Printf("send queue full for connection %q", c.connId)
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs exactly once, on close or transport error. It must be
// total over all prior states: a connection that never joined a room,
// or whose room has since been unloaded, cleans up the same way.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		room := c.getRoom()

		c.srv.removeClient(c)

		if room != nil {
			select {
			case room.disconnectChan <- c:
			default:
				c.log.Printf("disconnectChan full for room %q", room.externalId)
			}
		}

		c.stopClient()
	})
}

func (c *Client) setRoomId(roomId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomId = roomId
}

func (c *Client) RoomId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomId
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = r
}

func (c *Client) getRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}
