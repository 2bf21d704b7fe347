package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/auxroom/auxroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_timeSeconds(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(now.Unix()), timeSeconds(now))

	// sub-second precision is preserved, within float64 resolution
	// at epoch-seconds magnitude
	assert.InDelta(t, float64(now.Unix())+0.25, timeSeconds(now.Add(250*time.Millisecond)), 1e-6)
}

func TestEvent_Envelope(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	event := NewPong(1.5, now)
	b, err := json.Marshal(event)
	assert.NoError(t, err)

	var envelope map[string]any
	assert.NoError(t, json.Unmarshal(b, &envelope))

	assert.Equal(t, EventPong, envelope["type"])
	assert.Equal(t, timeSeconds(now), envelope["timestamp"])

	data, ok := envelope["data"].(map[string]any)
	assert.True(t, ok, "expected data object")
	assert.Equal(t, 1.5, data["client_time"])
	assert.Equal(t, timeSeconds(now), data["server_time"])
}

func TestEvent_RoomScopedPayloadsCarryRoomId(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	track := types.Track{Id: 1, RoomId: "room-a", Title: "Song"}

	tt := []struct {
		name  string
		event *Event
	}{
		{"user_joined", newEvent(EventUserJoined, UserJoined{RoomId: "room-a"}, now)},
		{"track_added", newEvent(EventTrackAdded, TrackAdded{RoomId: "room-a", Track: track}, now)},
		{"queue_reordered", newEvent(EventQueueReordered, QueueReordered{RoomId: "room-a", Reason: ReasonVoteAdded}, now)},
		{"playback_started", newEvent(EventPlaybackStarted, PlaybackStarted{RoomId: "room-a", Track: track, ServerTime: timeSeconds(now)}, now)},
		{"playback_paused", newEvent(EventPlaybackPaused, PlaybackPaused{RoomId: "room-a", Position: 2, ServerTime: timeSeconds(now)}, now)},
		{"playback_stopped", newEvent(EventPlaybackStopped, PlaybackStopped{RoomId: "room-a", ServerTime: timeSeconds(now)}, now)},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.event)
			assert.NoError(t, err)

			var envelope struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			assert.NoError(t, json.Unmarshal(b, &envelope))
			assert.Equal(t, tc.name, envelope.Type)
			assert.Equal(t, "room-a", envelope.Data["room_id"])
		})
	}
}

func TestResponseConstructors(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("NoErrOK", func(t *testing.T) {
		event := NoErrOK(7, map[string]int{"x": 1}, now)
		assert.Equal(t, EventResponse, event.Type)

		resp, ok := event.Data.(Response)
		assert.True(t, ok)
		assert.Equal(t, 7, resp.Id)
		assert.Equal(t, http.StatusOK, resp.ResponseCode)
		assert.Empty(t, resp.Error)
	})

	tt := []struct {
		name        string
		constructor func(id int, now time.Time) *Event
		code        int
		msg         string
	}{
		{"room not found", ErrRoomNotFound, http.StatusNotFound, "room not found"},
		{"track not found", ErrTrackNotFound, http.StatusNotFound, "track not found"},
		{"not authorized", ErrNotAuthorized, http.StatusForbidden, "not authorized"},
		{"already a member", ErrAlreadyMember, http.StatusConflict, "already a member"},
		{"not a member", ErrNotAMember, http.StatusConflict, "not a member"},
		{"administrator cannot leave", ErrAdministratorCannotLeave, http.StatusConflict, "administrator cannot leave"},
		{"not playing", ErrNotPlaying, http.StatusConflict, "playback is not playing"},
		{"not paused", ErrNotPaused, http.StatusConflict, "playback is not paused"},
		{"duplicate vote", ErrDuplicateVote, http.StatusConflict, "vote already cast"},
		{"vote not found", ErrVoteNotFound, http.StatusNotFound, "vote not found"},
		{"invalid message", ErrInvalidMessage, http.StatusBadRequest, "invalid message format"},
		{"internal error", ErrInternalError, http.StatusInternalServerError, "internal server error"},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "service unavailable"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			event := tc.constructor(3, now)
			assert.Equal(t, EventResponse, event.Type)
			assert.Equal(t, timeSeconds(now), event.Timestamp)

			resp, ok := event.Data.(Response)
			assert.True(t, ok)
			assert.Equal(t, 3, resp.Id)
			assert.Equal(t, tc.code, resp.ResponseCode)
			assert.Equal(t, tc.msg, resp.Error)
		})
	}
}
