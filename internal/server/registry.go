package server

import (
	"errors"
	"sync"
)

// ErrDuplicateConnection is returned by Register when the user already
// has a live authenticated connection. Policy: the new connection is
// rejected, the existing one keeps its registration.
var ErrDuplicateConnection = errors.New("user already has a live connection")

// Registry is the authoritative index of live connections: one index by
// user id, one by room. All mutation goes through its methods; nothing
// else touches the maps. A connection observes at most one room at a
// time, and its room assignment changes only under the registry lock so
// the two views can never disagree.
type Registry struct {
	mu     sync.Mutex
	byUser map[int]*Client
	byRoom map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int]*Client),
		byRoom: make(map[string]map[*Client]struct{}),
	}
}

func (reg *Registry) Register(c *Client) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.byUser[c.user.Id]; ok {
		return ErrDuplicateConnection
	}

	reg.byUser[c.user.Id] = c
	return nil
}

// Unregister removes the connection from both indices and reports
// whether it held the user's registration. Safe to call for a
// connection that never completed registration.
func (reg *Registry) Unregister(c *Client) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := false
	if cur, ok := reg.byUser[c.user.Id]; ok && cur == c {
		delete(reg.byUser, c.user.Id)
		removed = true
	}

	reg.removeFromRoomLocked(c)
	c.setRoomId("")
	return removed
}

// JoinRoom indexes the connection under roomId, detaching it from any
// previously observed room first.
func (reg *Registry) JoinRoom(c *Client, roomId string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.removeFromRoomLocked(c)

	if reg.byRoom[roomId] == nil {
		reg.byRoom[roomId] = make(map[*Client]struct{})
	}
	reg.byRoom[roomId][c] = struct{}{}
	c.setRoomId(roomId)
}

// LeaveRoom detaches the connection from its current room. No-op if the
// connection is not observing one.
func (reg *Registry) LeaveRoom(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.removeFromRoomLocked(c)
	c.setRoomId("")
}

func (reg *Registry) removeFromRoomLocked(c *Client) {
	roomId := c.RoomId()
	if roomId == "" {
		return
	}

	if clients, ok := reg.byRoom[roomId]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(reg.byRoom, roomId)
		}
	}
}

// ConnectionsInRoom returns a snapshot of the room's connections. The
// broadcaster iterates the copy, so concurrent joins and leaves never
// race the fan-out.
func (reg *Registry) ConnectionsInRoom(roomId string) []*Client {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	clients := make([]*Client, 0, len(reg.byRoom[roomId]))
	for c := range reg.byRoom[roomId] {
		clients = append(clients, c)
	}

	return clients
}

// AllConnections returns a snapshot of every registered connection.
func (reg *Registry) AllConnections() []*Client {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	clients := make([]*Client, 0, len(reg.byUser))
	for _, c := range reg.byUser {
		clients = append(clients, c)
	}

	return clients
}

func (reg *Registry) RoomCount(roomId string) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.byRoom[roomId])
}

type RegistryStats struct {
	TotalConnections   int
	RoomCounts         map[string]int
	AuthenticatedUsers []int
}

func (reg *Registry) Stats() RegistryStats {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	s := RegistryStats{
		TotalConnections: len(reg.byUser),
		RoomCounts:       make(map[string]int, len(reg.byRoom)),
	}

	for roomId, clients := range reg.byRoom {
		s.RoomCounts[roomId] = len(clients)
	}
	for userId := range reg.byUser {
		s.AuthenticatedUsers = append(s.AuthenticatedUsers, userId)
	}

	return s
}
