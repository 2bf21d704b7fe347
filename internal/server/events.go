package server

import (
	"net/http"
	"time"

	"github.com/auxroom/auxroom/internal/types"
)

// Server event types. Every broadcast frame carries one of these in its
// envelope; playback_* payloads always include server_time and
// queue-affecting payloads always include the full updated queue.
const (
	EventConnectionEstablished = "connection_established"
	EventAuthenticationError   = "authentication_error"
	EventPong                  = "pong"
	EventResponse              = "response"
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventTrackAdded            = "track_added"
	EventTrackVoted            = "track_voted"
	EventTrackUnvoted          = "track_unvoted"
	EventQueueReordered        = "queue_reordered"
	EventPlaybackStarted       = "playback_started"
	EventPlaybackPaused        = "playback_paused"
	EventPlaybackResumed       = "playback_resumed"
	EventTrackSkipped          = "track_skipped"
	EventPlaybackStopped       = "playback_stopped"
)

// Reorder reasons carried by queue_reordered.
const (
	ReasonVoteAdded   = "vote_added"
	ReasonVoteRemoved = "vote_removed"
	ReasonTrackAdded  = "track_added"
)

// Event is the outbound envelope: {type, data, timestamp}. Timestamp is
// float seconds since the epoch, taken from the server clock.
type Event struct {
	Type      string  `json:"type"`
	Data      any     `json:"data"`
	Timestamp float64 `json:"timestamp"`
}

func timeSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func newEvent(eventType string, data any, now time.Time) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: timeSeconds(now),
	}
}

type ConnectionEstablished struct {
	ConnectionId string     `json:"connection_id"`
	User         types.User `json:"user"`
}

type AuthenticationError struct {
	Reason string `json:"reason"`
}

type Pong struct {
	ClientTime float64 `json:"client_time,omitempty"`
	ServerTime float64 `json:"server_time"`
}

type UserJoined struct {
	RoomId  string       `json:"room_id"`
	User    types.User   `json:"user"`
	Members []types.User `json:"members"`
}

type UserLeft struct {
	RoomId  string       `json:"room_id"`
	User    types.User   `json:"user"`
	Members []types.User `json:"members"`
}

type TrackAdded struct {
	RoomId       string        `json:"room_id"`
	Track        types.Track   `json:"track"`
	UpdatedQueue []types.Track `json:"updated_queue"`
}

type TrackVoted struct {
	RoomId       string        `json:"room_id"`
	Track        types.Track   `json:"track"`
	UserId       int           `json:"user_id"`
	UpdatedQueue []types.Track `json:"updated_queue"`
}

type TrackUnvoted struct {
	RoomId       string        `json:"room_id"`
	Track        types.Track   `json:"track"`
	UserId       int           `json:"user_id"`
	UpdatedQueue []types.Track `json:"updated_queue"`
}

type QueueReordered struct {
	RoomId       string        `json:"room_id"`
	Reason       string        `json:"reason"`
	UpdatedQueue []types.Track `json:"updated_queue"`
}

type PlaybackStarted struct {
	RoomId     string      `json:"room_id"`
	Track      types.Track `json:"track"`
	StartedAt  float64     `json:"started_at"`
	ServerTime float64     `json:"server_time"`
}

type PlaybackPaused struct {
	RoomId     string  `json:"room_id"`
	Position   float64 `json:"position"`
	ServerTime float64 `json:"server_time"`
}

type PlaybackResumed struct {
	RoomId     string  `json:"room_id"`
	Position   float64 `json:"position"`
	ServerTime float64 `json:"server_time"`
}

type TrackSkipped struct {
	RoomId     string      `json:"room_id"`
	Track      types.Track `json:"track"`
	StartedAt  float64     `json:"started_at"`
	ServerTime float64     `json:"server_time"`
}

type PlaybackStopped struct {
	RoomId     string  `json:"room_id"`
	ServerTime float64 `json:"server_time"`
}

// Response is a frame sent only to the requesting connection: command
// replies and precondition failures, never broadcast.
type Response struct {
	Id           int    `json:"id,omitempty"`
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func NewConnectionEstablished(connectionId string, user types.User, now time.Time) *Event {
	return newEvent(EventConnectionEstablished, ConnectionEstablished{
		ConnectionId: connectionId,
		User:         user,
	}, now)
}

func NewAuthenticationError(reason string, now time.Time) *Event {
	return newEvent(EventAuthenticationError, AuthenticationError{Reason: reason}, now)
}

func NewPong(clientTime float64, now time.Time) *Event {
	return newEvent(EventPong, Pong{
		ClientTime: clientTime,
		ServerTime: timeSeconds(now),
	}, now)
}

func NoErrOK(id int, data any, now time.Time) *Event {
	return newEvent(EventResponse, Response{
		Id:           id,
		ResponseCode: http.StatusOK,
		Data:         data,
	}, now)
}

func errResponse(id, code int, msg string, now time.Time) *Event {
	return newEvent(EventResponse, Response{
		Id:           id,
		ResponseCode: code,
		Error:        msg,
	}, now)
}

func ErrRoomNotFound(id int, now time.Time) *Event {
	return errResponse(id, http.StatusNotFound, "room not found", now)
}

func ErrTrackNotFound(id int, now time.Time) *Event {
	return errResponse(id, http.StatusNotFound, "track not found", now)
}

func ErrNotAuthorized(id int, now time.Time) *Event {
	return errResponse(id, http.StatusForbidden, "not authorized", now)
}

func ErrAlreadyMember(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "already a member", now)
}

func ErrNotAMember(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "not a member", now)
}

func ErrAdministratorCannotLeave(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "administrator cannot leave", now)
}

func ErrNotPlaying(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "playback is not playing", now)
}

func ErrNotPaused(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "playback is not paused", now)
}

func ErrDuplicateVote(id int, now time.Time) *Event {
	return errResponse(id, http.StatusConflict, "vote already cast", now)
}

func ErrVoteNotFound(id int, now time.Time) *Event {
	return errResponse(id, http.StatusNotFound, "vote not found", now)
}

func ErrInvalidMessage(id int, now time.Time) *Event {
	return errResponse(id, http.StatusBadRequest, "invalid message format", now)
}

func ErrInternalError(id int, now time.Time) *Event {
	return errResponse(id, http.StatusInternalServerError, "internal server error", now)
}

func ErrServiceUnavailable(id int, now time.Time) *Event {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable", now)
}
