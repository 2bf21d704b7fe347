package server

import (
	"context"
	"errors"
	"log"

	"github.com/auxroom/auxroom/internal/database"
	"github.com/auxroom/auxroom/internal/stats"
	"github.com/auxroom/auxroom/internal/types"
)

type unloadRoomRequest struct {
	roomId  string
	deleted bool
}

type stopRequest struct {
	done chan struct{}
}

// SyncServer owns the live-room map and the connection registry. Room
// actors are loaded lazily on first join and unloaded when idle.
type SyncServer struct {
	log      *log.Logger
	db       database.AuxRoomRepository
	stats    stats.StatsProvider
	registry *Registry
	clock    Clock

	broadcaster *Broadcaster
	rooms       map[string]*Room

	joinChan       chan *ClientMessage
	unloadRoomChan chan unloadRoomRequest
	RmRoomChan     chan string
	stop           chan stopRequest
	done           chan struct{}
}

func NewSyncServer(logger *log.Logger, db database.AuxRoomRepository, sp stats.StatsProvider, clock Clock) (*SyncServer, error) {
	registry := NewRegistry()

	ss := &SyncServer{
		log:            logger,
		db:             db,
		stats:          sp,
		registry:       registry,
		clock:          clock,
		broadcaster:    NewBroadcaster(registry, logger, sp),
		rooms:          make(map[string]*Room),
		joinChan:       make(chan *ClientMessage, 256),
		unloadRoomChan: make(chan unloadRoomRequest, 256),
		RmRoomChan:     make(chan string),
		stop:           make(chan stopRequest),
		done:           make(chan struct{}),
	}

	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.ActiveRooms)
	sp.RegisterMetric(stats.EventsBroadcast)
	sp.RegisterMetric(stats.DeliveryFailures)

	return ss, nil
}

// Registry exposes the connection index for observability endpoints.
func (ss *SyncServer) Registry() *Registry {
	return ss.registry
}

// RegisterClient indexes an authenticated connection and greets it with
// connection_established. A user may hold only one live connection; a
// second one is rejected.
func (ss *SyncServer) RegisterClient(c *Client) error {
	if err := ss.registry.Register(c); err != nil {
		return err
	}

	ss.stats.Incr(stats.ActiveConnections)
	c.queueEvent(NewConnectionEstablished(c.connId, c.user, ss.clock.Now()))

	return nil
}

func (ss *SyncServer) removeClient(c *Client) {
	if ss.registry.Unregister(c) {
		ss.stats.Decr(stats.ActiveConnections)
	}
}

func (ss *SyncServer) Run() {
	for {
		select {
		case joinMsg := <-ss.joinChan:
			ss.handleJoin(joinMsg)
		case req := <-ss.unloadRoomChan:
			ss.unloadRoom(req.roomId, req.deleted)
		case externalId := <-ss.RmRoomChan:
			ss.unloadRoom(externalId, true)
		case req := <-ss.stop:
			ss.log.Println("shutting down rooms")
			for _, c := range ss.registry.AllConnections() {
				c.stopClient()
			}
			for externalId := range ss.rooms {
				ss.unloadRoom(externalId, false)
			}

			close(req.done)
			close(ss.done)
			return
		}
	}
}

func (ss *SyncServer) handleJoin(joinMsg *ClientMessage) {
	if room, ok := ss.rooms[joinMsg.RoomId]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			ss.log.Printf("join channel full on room %q", room.externalId)
			joinMsg.client.queueEvent(ErrServiceUnavailable(joinMsg.Id, ss.clock.Now()))
		}
		return
	}

	room, err := ss.loadRoom(joinMsg.RoomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			joinMsg.client.queueEvent(ErrRoomNotFound(joinMsg.Id, ss.clock.Now()))
		} else {
			ss.log.Println("loadRoom:", err)
			joinMsg.client.queueEvent(ErrInternalError(joinMsg.Id, ss.clock.Now()))
		}
		return
	}

	ss.rooms[room.externalId] = room
	ss.stats.Incr(stats.ActiveRooms)
	room.joinChan <- joinMsg

	go room.start()
}

// loadRoom hydrates a room actor from storage: directory record,
// membership and the current track queue.
func (ss *SyncServer) loadRoom(externalId string) (*Room, error) {
	dbRoom, err := ss.db.GetRoomByExternalId(externalId)
	if err != nil {
		return nil, err
	}

	room := &Room{
		id:             dbRoom.Id,
		externalId:     dbRoom.ExternalId,
		name:           dbRoom.Name,
		adminId:        dbRoom.AdminId,
		srv:            ss,
		db:             ss.db,
		broadcaster:    ss.broadcaster,
		log:            ss.log,
		clock:          ss.clock,
		members:        make(map[int]types.User),
		tracks:         make(map[int]types.Track),
		joinChan:       make(chan *ClientMessage, 256),
		cmdChan:        make(chan *ClientMessage, 256),
		disconnectChan: make(chan *Client, 256),
		exit:           make(chan exitReq),
		done:           make(chan struct{}),
	}

	members, err := ss.db.GetMembersByRoomId(dbRoom.Id)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		room.members[m.AccountId] = types.User{Id: m.AccountId, Username: m.Username}
	}

	tracks, err := ss.db.ListTracksByRoomId(dbRoom.Id)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		room.tracks[t.Id] = room.toTrack(t)
	}
	room.lastOrder = queueIds(OrderTracks(room.trackList()))

	return room, nil
}

func (ss *SyncServer) unloadRoom(externalId string, deleted bool) {
	room, ok := ss.rooms[externalId]
	if !ok {
		return
	}

	ss.log.Printf("removing room %q", externalId)
	delete(ss.rooms, externalId)
	ss.stats.Decr(stats.ActiveRooms)

	room.exit <- exitReq{deleted: deleted}
	<-room.done
}

func (ss *SyncServer) Shutdown(ctx context.Context) error {
	req := stopRequest{done: make(chan struct{})}

	select {
	case ss.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
