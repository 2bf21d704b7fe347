package server

import (
	"log"

	"github.com/auxroom/auxroom/internal/stats"
)

// Broadcaster fans an event out to every connection currently indexed
// under a room. Delivery is best-effort: a connection whose send queue
// is full is scheduled for cleanup and the fan-out continues; nothing
// propagates past this boundary.
type Broadcaster struct {
	registry *Registry
	log      *log.Logger
	stats    stats.StatsProvider
}

func NewBroadcaster(registry *Registry, logger *log.Logger, sp stats.StatsProvider) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		log:      logger,
		stats:    sp,
	}
}

func (b *Broadcaster) Broadcast(roomId string, event *Event) {
	for _, c := range b.registry.ConnectionsInRoom(roomId) {
		if !c.queueEvent(event) {
			b.log.Printf("delivery failure to connection %q in room %q, scheduling cleanup", c.connId, roomId)
			b.stats.Incr(stats.DeliveryFailures)
			c.stopClient()
		}
	}

	b.stats.Incr(stats.EventsBroadcast)
}
