package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Name       string    `json:"name"`
	AdminId    int       `json:"admin_id"`
	Members    []User    `json:"members,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type Track struct {
	Id         int       `json:"id"`
	RoomId     string    `json:"room_id"`
	UploaderId int       `json:"uploader_id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	VoteScore  int       `json:"vote_score"`
	CreatedAt  time.Time `json:"created_at"`
}

type Vote struct {
	TrackId   int       `json:"track_id"`
	UserId    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PlaybackStatus is the snapshot returned to clients asking where
// playback currently is.
type PlaybackStatus struct {
	CurrentTrack *Track  `json:"current_track,omitempty"`
	IsPlaying    bool    `json:"is_playing"`
	Position     float64 `json:"position"`
	ServerTime   float64 `json:"server_time"`
}
