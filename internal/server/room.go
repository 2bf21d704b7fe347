package server

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/auxroom/auxroom/internal/database"
	"github.com/auxroom/auxroom/internal/types"
)

const idleRoomTimeout = time.Minute

type exitReq struct {
	deleted bool
}

// Room is the per-room actor. Membership, the track queue and playback
// state are mutated only inside its goroutine, so every transition on a
// room is serialized without a lock. I/O-heavy work (socket writes)
// happens outside the actor, in each connection's write pump.
type Room struct {
	id         int
	externalId string
	name       string
	adminId    int

	srv         *SyncServer
	db          database.AuxRoomRepository
	broadcaster *Broadcaster
	log         *log.Logger
	clock       Clock

	members   map[int]types.User
	tracks    map[int]types.Track
	lastOrder []int
	playback  playbackState

	joinChan       chan *ClientMessage
	cmdChan        chan *ClientMessage
	disconnectChan chan *Client
	exit           chan exitReq
	done           chan struct{}

	// killTimer unloads the room once no connection observes it
	killTimer *time.Timer
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case msg := <-r.cmdChan:
			r.handleCommand(msg)
		case c := <-r.disconnectChan:
			r.handleDisconnect(c)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleCommand(msg *ClientMessage) {
	switch msg.Type {
	case MsgLeaveRoom:
		r.handleLeave(msg)
	case MsgAddTrack:
		r.handleAddTrack(msg)
	case MsgVote:
		r.handleVote(msg)
	case MsgUnvote:
		r.handleUnvote(msg)
	case MsgPlay:
		r.handlePlay(msg)
	case MsgPause:
		r.handlePause(msg)
	case MsgResume:
		r.handleResume(msg)
	case MsgSkip:
		r.handleSkip(msg)
	case MsgStatus:
		r.handleStatus(msg)
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	prev := c.getRoom()

	// the connection observes the room regardless of the membership
	// outcome below; observing and membership are separate concerns
	r.srv.registry.JoinRoom(c, r.externalId)
	c.setRoom(r)

	// a room switch is a disconnect from the previous room's point of
	// view: it must drop the membership and re-evaluate its kill timer.
	// Notified after JoinRoom so the previous room already observes the
	// connection as gone.
	if prev != nil && prev != r {
		select {
		case prev.disconnectChan <- c:
		default:
			r.log.Printf("disconnectChan full for room %q", prev.externalId)
		}
	}

	if _, ok := r.members[c.user.Id]; ok {
		c.queueEvent(ErrAlreadyMember(join.Id, r.clock.Now()))
		return
	}

	if _, err := r.db.CreateMembership(c.user.Id, r.id); err != nil {
		r.log.Println("CreateMembership:", err)
		c.queueEvent(ErrInternalError(join.Id, r.clock.Now()))
		return
	}

	r.members[c.user.Id] = c.user

	members := r.memberSnapshot()
	r.broadcaster.Broadcast(r.externalId, newEvent(EventUserJoined, UserJoined{
		RoomId:  r.externalId,
		User:    c.user,
		Members: members,
	}, r.clock.Now()))

	c.queueEvent(NoErrOK(join.Id, r.roomSnapshot(), r.clock.Now()))
}

func (r *Room) handleLeave(msg *ClientMessage) {
	c := msg.client
	userId := c.user.Id

	// the connection stops observing either way; membership rules
	// below decide whether the member set changes
	r.srv.registry.LeaveRoom(c)
	c.setRoom(nil)

	defer r.maybeStartKillTimer()

	if _, ok := r.members[userId]; !ok {
		c.queueEvent(ErrNotAMember(msg.Id, r.clock.Now()))
		return
	}

	if userId == r.adminId {
		c.queueEvent(ErrAdministratorCannotLeave(msg.Id, r.clock.Now()))
		return
	}

	if err := r.db.DeleteMembership(userId, r.id); err != nil && !errors.Is(err, database.ErrNotFound) {
		r.log.Println("DeleteMembership:", err)
		c.queueEvent(ErrInternalError(msg.Id, r.clock.Now()))
		return
	}

	user := r.members[userId]
	delete(r.members, userId)

	c.queueEvent(NoErrOK(msg.Id, nil, r.clock.Now()))

	r.broadcaster.Broadcast(r.externalId, newEvent(EventUserLeft, UserLeft{
		RoomId:  r.externalId,
		User:    user,
		Members: r.memberSnapshot(),
	}, r.clock.Now()))
}

// handleDisconnect runs after a connection closed. Non-administrator
// members lose membership with their last connection; the administrator
// stays a member no matter what.
func (r *Room) handleDisconnect(c *Client) {
	defer r.maybeStartKillTimer()

	userId := c.user.Id
	user, ok := r.members[userId]
	if !ok || userId == r.adminId {
		return
	}

	if err := r.db.DeleteMembership(userId, r.id); err != nil && !errors.Is(err, database.ErrNotFound) {
		r.log.Println("DeleteMembership on disconnect:", err)
	}

	delete(r.members, userId)

	r.broadcaster.Broadcast(r.externalId, newEvent(EventUserLeft, UserLeft{
		RoomId:  r.externalId,
		User:    user,
		Members: r.memberSnapshot(),
	}, r.clock.Now()))
}

func (r *Room) handleAddTrack(msg *ClientMessage) {
	c := msg.client
	if _, ok := r.members[c.user.Id]; !ok {
		c.queueEvent(ErrNotAMember(msg.Id, r.clock.Now()))
		return
	}

	if msg.Track == nil || msg.Track.Title == "" {
		c.queueEvent(ErrInvalidMessage(msg.Id, r.clock.Now()))
		return
	}

	dbTrack, err := r.db.CreateTrack(database.CreateTrackParams{
		RoomId:     r.id,
		UploaderId: c.user.Id,
		Title:      msg.Track.Title,
		Artist:     msg.Track.Artist,
		Duration:   msg.Track.Duration,
	})
	if err != nil {
		r.log.Println("CreateTrack:", err)
		c.queueEvent(ErrInternalError(msg.Id, r.clock.Now()))
		return
	}

	track := r.toTrack(dbTrack)
	r.tracks[track.Id] = track

	ordered := OrderTracks(r.trackList())
	r.broadcaster.Broadcast(r.externalId, newEvent(EventTrackAdded, TrackAdded{
		RoomId:       r.externalId,
		Track:        track,
		UpdatedQueue: ordered,
	}, r.clock.Now()))

	r.emitReorderIfChanged(ReasonTrackAdded, ordered)

	c.queueEvent(NoErrOK(msg.Id, track, r.clock.Now()))
}

func (r *Room) handleVote(msg *ClientMessage) {
	c := msg.client
	if _, ok := r.members[c.user.Id]; !ok {
		c.queueEvent(ErrNotAMember(msg.Id, r.clock.Now()))
		return
	}

	if _, ok := r.tracks[msg.TrackId]; !ok {
		c.queueEvent(ErrTrackNotFound(msg.Id, r.clock.Now()))
		return
	}

	dbTrack, err := r.db.AddVote(msg.TrackId, c.user.Id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateVote):
			c.queueEvent(ErrDuplicateVote(msg.Id, r.clock.Now()))
		case errors.Is(err, database.ErrNotFound):
			c.queueEvent(ErrTrackNotFound(msg.Id, r.clock.Now()))
		default:
			r.log.Println("AddVote:", err)
			c.queueEvent(ErrInternalError(msg.Id, r.clock.Now()))
		}
		return
	}

	track := r.toTrack(dbTrack)
	r.tracks[track.Id] = track

	ordered := OrderTracks(r.trackList())
	r.broadcaster.Broadcast(r.externalId, newEvent(EventTrackVoted, TrackVoted{
		RoomId:       r.externalId,
		Track:        track,
		UserId:       c.user.Id,
		UpdatedQueue: ordered,
	}, r.clock.Now()))

	r.emitReorderIfChanged(ReasonVoteAdded, ordered)

	c.queueEvent(NoErrOK(msg.Id, track, r.clock.Now()))
}

func (r *Room) handleUnvote(msg *ClientMessage) {
	c := msg.client
	if _, ok := r.members[c.user.Id]; !ok {
		c.queueEvent(ErrNotAMember(msg.Id, r.clock.Now()))
		return
	}

	if _, ok := r.tracks[msg.TrackId]; !ok {
		c.queueEvent(ErrTrackNotFound(msg.Id, r.clock.Now()))
		return
	}

	dbTrack, err := r.db.RemoveVote(msg.TrackId, c.user.Id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.queueEvent(ErrVoteNotFound(msg.Id, r.clock.Now()))
		default:
			r.log.Println("RemoveVote:", err)
			c.queueEvent(ErrInternalError(msg.Id, r.clock.Now()))
		}
		return
	}

	track := r.toTrack(dbTrack)
	r.tracks[track.Id] = track

	ordered := OrderTracks(r.trackList())
	r.broadcaster.Broadcast(r.externalId, newEvent(EventTrackUnvoted, TrackUnvoted{
		RoomId:       r.externalId,
		Track:        track,
		UserId:       c.user.Id,
		UpdatedQueue: ordered,
	}, r.clock.Now()))

	r.emitReorderIfChanged(ReasonVoteRemoved, ordered)

	c.queueEvent(NoErrOK(msg.Id, track, r.clock.Now()))
}

func (r *Room) handlePlay(msg *ClientMessage) {
	c := msg.client
	if c.user.Id != r.adminId {
		c.queueEvent(ErrNotAuthorized(msg.Id, r.clock.Now()))
		return
	}

	track, ok := r.tracks[msg.TrackId]
	if !ok {
		c.queueEvent(ErrTrackNotFound(msg.Id, r.clock.Now()))
		return
	}

	now := r.clock.Now()
	r.playback.start(track.Id, now)

	r.broadcaster.Broadcast(r.externalId, newEvent(EventPlaybackStarted, PlaybackStarted{
		RoomId:     r.externalId,
		Track:      track,
		StartedAt:  timeSeconds(now),
		ServerTime: timeSeconds(now),
	}, now))

	c.queueEvent(NoErrOK(msg.Id, nil, now))
}

func (r *Room) handlePause(msg *ClientMessage) {
	c := msg.client
	if c.user.Id != r.adminId {
		c.queueEvent(ErrNotAuthorized(msg.Id, r.clock.Now()))
		return
	}

	now := r.clock.Now()
	position, ok := r.playback.pause(now)
	if !ok {
		c.queueEvent(ErrNotPlaying(msg.Id, now))
		return
	}

	r.broadcaster.Broadcast(r.externalId, newEvent(EventPlaybackPaused, PlaybackPaused{
		RoomId:     r.externalId,
		Position:   position,
		ServerTime: timeSeconds(now),
	}, now))

	c.queueEvent(NoErrOK(msg.Id, nil, now))
}

func (r *Room) handleResume(msg *ClientMessage) {
	c := msg.client
	if c.user.Id != r.adminId {
		c.queueEvent(ErrNotAuthorized(msg.Id, r.clock.Now()))
		return
	}

	now := r.clock.Now()
	position, ok := r.playback.resume(now)
	if !ok {
		c.queueEvent(ErrNotPaused(msg.Id, now))
		return
	}

	r.broadcaster.Broadcast(r.externalId, newEvent(EventPlaybackResumed, PlaybackResumed{
		RoomId:     r.externalId,
		Position:   position,
		ServerTime: timeSeconds(now),
	}, now))

	c.queueEvent(NoErrOK(msg.Id, nil, now))
}

// handleSkip advances to the track after the current one in queue order,
// or the head of the queue when nothing is current. With nothing left to
// play the room goes idle.
func (r *Room) handleSkip(msg *ClientMessage) {
	c := msg.client
	if c.user.Id != r.adminId {
		c.queueEvent(ErrNotAuthorized(msg.Id, r.clock.Now()))
		return
	}

	now := r.clock.Now()
	next, ok := r.nextTrack()
	if !ok {
		r.playback.stop()
		r.broadcaster.Broadcast(r.externalId, newEvent(EventPlaybackStopped, PlaybackStopped{
			RoomId:     r.externalId,
			ServerTime: timeSeconds(now),
		}, now))
		c.queueEvent(NoErrOK(msg.Id, nil, now))
		return
	}

	r.playback.start(next.Id, now)

	r.broadcaster.Broadcast(r.externalId, newEvent(EventTrackSkipped, TrackSkipped{
		RoomId:     r.externalId,
		Track:      next,
		StartedAt:  timeSeconds(now),
		ServerTime: timeSeconds(now),
	}, now))

	c.queueEvent(NoErrOK(msg.Id, nil, now))
}

func (r *Room) handleStatus(msg *ClientMessage) {
	now := r.clock.Now()
	msg.client.queueEvent(NoErrOK(msg.Id, r.playbackStatus(now), now))
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q idle, requesting unload", r.externalId)
	select {
	case r.srv.unloadRoomChan <- unloadRoomRequest{roomId: r.externalId}:
	default:
		r.log.Printf("unload channel full for room %q", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.externalId)

	if e.deleted && r.playback.currentTrackId != 0 {
		now := r.clock.Now()
		r.broadcaster.Broadcast(r.externalId, newEvent(EventPlaybackStopped, PlaybackStopped{
			RoomId:     r.externalId,
			ServerTime: timeSeconds(now),
		}, now))
	}

	// detach every connection still observing the room
	for _, c := range r.srv.registry.ConnectionsInRoom(r.externalId) {
		r.srv.registry.LeaveRoom(c)
		c.setRoom(nil)
	}

	close(r.done)
}

func (r *Room) maybeStartKillTimer() {
	if r.srv.registry.RoomCount(r.externalId) == 0 {
		r.log.Printf("no connections in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// emitReorderIfChanged broadcasts queue_reordered only when the order
// actually differs from the last one sent; a score change that keeps the
// sequence intact is already visible in the vote event.
func (r *Room) emitReorderIfChanged(reason string, ordered []types.Track) {
	ids := queueIds(ordered)
	if sameOrder(r.lastOrder, ids) {
		return
	}
	r.lastOrder = ids

	r.broadcaster.Broadcast(r.externalId, newEvent(EventQueueReordered, QueueReordered{
		RoomId:       r.externalId,
		Reason:       reason,
		UpdatedQueue: ordered,
	}, r.clock.Now()))
}

// nextTrack picks the entry immediately after the current track in queue
// order, or the head of the queue when nothing is current.
func (r *Room) nextTrack() (types.Track, bool) {
	ordered := OrderTracks(r.trackList())
	if len(ordered) == 0 {
		return types.Track{}, false
	}

	if r.playback.currentTrackId == 0 {
		return ordered[0], true
	}

	for i, t := range ordered {
		if t.Id == r.playback.currentTrackId {
			if i+1 < len(ordered) {
				return ordered[i+1], true
			}
			return types.Track{}, false
		}
	}

	// current track no longer in the queue, restart from the head
	return ordered[0], true
}

func (r *Room) trackList() []types.Track {
	tracks := make([]types.Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		tracks = append(tracks, t)
	}
	return tracks
}

func (r *Room) memberSnapshot() []types.User {
	members := make([]types.User, 0, len(r.members))
	for _, u := range r.members {
		members = append(members, u)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Id < members[j].Id })
	return members
}

func (r *Room) playbackStatus(now time.Time) types.PlaybackStatus {
	status := types.PlaybackStatus{
		IsPlaying:  r.playback.isPlaying,
		Position:   r.playback.position(now),
		ServerTime: timeSeconds(now),
	}

	if t, ok := r.tracks[r.playback.currentTrackId]; ok {
		status.CurrentTrack = &t
	}

	return status
}

type roomSnapshot struct {
	Room     types.Room           `json:"room"`
	Queue    []types.Track        `json:"queue"`
	Playback types.PlaybackStatus `json:"playback"`
}

func (r *Room) roomSnapshot() roomSnapshot {
	return roomSnapshot{
		Room: types.Room{
			Id:         r.id,
			ExternalId: r.externalId,
			Name:       r.name,
			AdminId:    r.adminId,
			Members:    r.memberSnapshot(),
		},
		Queue:    OrderTracks(r.trackList()),
		Playback: r.playbackStatus(r.clock.Now()),
	}
}

func (r *Room) toTrack(t database.Track) types.Track {
	return types.Track{
		Id:         t.Id,
		RoomId:     r.externalId,
		UploaderId: t.UploaderId,
		Title:      t.Title,
		Artist:     t.Artist,
		Duration:   t.Duration,
		VoteScore:  t.VoteScore,
		CreatedAt:  t.CreatedAt,
	}
}
