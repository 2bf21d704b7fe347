package server

import (
	"fmt"
	"testing"

	"github.com/auxroom/auxroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func newRegistryTestClient(userId int) *Client {
	return &Client{
		connId: fmt.Sprintf("conn-%d", userId),
		user:   types.User{Id: userId, Username: fmt.Sprintf("user%d", userId)},
		send:   make(chan *Event, 256),
		stop:   make(chan struct{}),
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers a connection", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)

		assert.NoError(t, reg.Register(c), "expected register to succeed")
		assert.Equal(t, 1, reg.Stats().TotalConnections)
	})

	t.Run("rejects a second connection for the same user", func(t *testing.T) {
		reg := NewRegistry()
		c1 := newRegistryTestClient(1)
		c2 := newRegistryTestClient(1)

		assert.NoError(t, reg.Register(c1))
		err := reg.Register(c2)
		assert.ErrorIs(t, err, ErrDuplicateConnection, "expected duplicate connection error")

		// the original registration is untouched
		assert.Equal(t, 1, reg.Stats().TotalConnections)
		reg.Unregister(c2)
		assert.Equal(t, 1, reg.Stats().TotalConnections, "expected rejected connection's unregister to be a no-op")
	})
}

func TestRegistry_JoinLeaveRoom(t *testing.T) {
	t.Run("join indexes the connection under the room", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)
		assert.NoError(t, reg.Register(c))

		reg.JoinRoom(c, "room-a")
		assert.Equal(t, "room-a", c.RoomId())
		assert.Contains(t, reg.ConnectionsInRoom("room-a"), c)
	})

	t.Run("a connection observes at most one room", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)
		assert.NoError(t, reg.Register(c))

		reg.JoinRoom(c, "room-a")
		reg.JoinRoom(c, "room-b")

		assert.Equal(t, "room-b", c.RoomId())
		assert.Empty(t, reg.ConnectionsInRoom("room-a"), "expected connection removed from previous room")
		assert.Contains(t, reg.ConnectionsInRoom("room-b"), c)
	})

	t.Run("leave is idempotent", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)
		assert.NoError(t, reg.Register(c))

		reg.JoinRoom(c, "room-a")
		reg.LeaveRoom(c)
		assert.Equal(t, "", c.RoomId())
		assert.Empty(t, reg.ConnectionsInRoom("room-a"))

		// leaving again is a no-op
		reg.LeaveRoom(c)
		assert.Equal(t, "", c.RoomId())
	})
}

func TestRegistry_Unregister(t *testing.T) {
	t.Run("removes from both indices", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)
		assert.NoError(t, reg.Register(c))
		reg.JoinRoom(c, "room-a")

		reg.Unregister(c)
		s := reg.Stats()
		assert.Equal(t, 0, s.TotalConnections)
		assert.Empty(t, reg.ConnectionsInRoom("room-a"))
		assert.Equal(t, "", c.RoomId())
	})

	t.Run("safe for a connection that never registered", func(t *testing.T) {
		reg := NewRegistry()
		c := newRegistryTestClient(1)

		assert.NotPanics(t, func() { reg.Unregister(c) })
		assert.Equal(t, 0, reg.Stats().TotalConnections)
	})
}

// Registry consistency: connection.RoomId() == r exactly when the
// connection appears in ConnectionsInRoom(r), at every observation
// point of an arbitrary join/leave/unregister sequence.
func TestRegistry_Consistency(t *testing.T) {
	reg := NewRegistry()
	rooms := []string{"room-a", "room-b", "room-c"}

	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = newRegistryTestClient(i + 1)
		assert.NoError(t, reg.Register(clients[i]))
	}

	checkConsistency := func() {
		t.Helper()
		for _, c := range clients {
			roomId := c.RoomId()
			for _, r := range rooms {
				inRoom := false
				for _, rc := range reg.ConnectionsInRoom(r) {
					if rc == c {
						inRoom = true
					}
				}
				assert.Equal(t, roomId == r, inRoom,
					"connection %q room index inconsistent for room %q", c.connId, r)
			}
		}
	}

	ops := []func(){
		func() { reg.JoinRoom(clients[0], "room-a") },
		func() { reg.JoinRoom(clients[1], "room-a") },
		func() { reg.JoinRoom(clients[2], "room-b") },
		func() { reg.JoinRoom(clients[0], "room-c") },
		func() { reg.LeaveRoom(clients[1]) },
		func() { reg.JoinRoom(clients[3], "room-b") },
		func() { reg.Unregister(clients[2]) },
		func() { reg.JoinRoom(clients[4], "room-a") },
		func() { reg.LeaveRoom(clients[0]) },
		func() { reg.Unregister(clients[4]) },
	}

	for _, op := range ops {
		op()
		checkConsistency()
	}
}

// No double-count: after N registrations and M unregistrations the
// total is N-M, regardless of interleaving.
func TestRegistry_NoDoubleCount(t *testing.T) {
	reg := NewRegistry()

	var clients []*Client
	for i := 1; i <= 10; i++ {
		c := newRegistryTestClient(i)
		assert.NoError(t, reg.Register(c))
		clients = append(clients, c)

		if i%2 == 0 {
			reg.Unregister(clients[i/2-1])
			// unregister must be safe to repeat at the index level
			reg.Unregister(clients[i/2-1])
		}
	}

	assert.Equal(t, 10-5, reg.Stats().TotalConnections, "expected N-M connections")
}

func TestRegistry_Stats(t *testing.T) {
	reg := NewRegistry()
	c1 := newRegistryTestClient(1)
	c2 := newRegistryTestClient(2)
	c3 := newRegistryTestClient(3)

	for _, c := range []*Client{c1, c2, c3} {
		assert.NoError(t, reg.Register(c))
	}
	reg.JoinRoom(c1, "room-a")
	reg.JoinRoom(c2, "room-a")
	reg.JoinRoom(c3, "room-b")

	s := reg.Stats()
	assert.Equal(t, 3, s.TotalConnections)
	assert.Equal(t, map[string]int{"room-a": 2, "room-b": 1}, s.RoomCounts)
	assert.ElementsMatch(t, []int{1, 2, 3}, s.AuthenticatedUsers)
}

func TestRegistry_ConnectionsInRoomSnapshot(t *testing.T) {
	reg := NewRegistry()
	c := newRegistryTestClient(1)
	assert.NoError(t, reg.Register(c))
	reg.JoinRoom(c, "room-a")

	snapshot := reg.ConnectionsInRoom("room-a")
	reg.LeaveRoom(c)

	// the snapshot is a copy; mutating the registry does not affect it
	assert.Len(t, snapshot, 1, "expected snapshot unaffected by later mutation")
}
