package server

// Client command types, dispatched on the "type" discriminator.
const (
	MsgPing      = "ping"
	MsgJoinRoom  = "join_room"
	MsgLeaveRoom = "leave_room"
	MsgAddTrack  = "add_track"
	MsgVote      = "vote"
	MsgUnvote    = "unvote"
	MsgPlay      = "play"
	MsgPause     = "pause"
	MsgResume    = "resume"
	MsgSkip      = "skip"
	MsgStatus    = "status"
)

// ClientMessage is a single inbound frame from a connection.
type ClientMessage struct {
	Id      int          `json:"id,omitempty"`
	Type    string       `json:"type"`
	RoomId  string       `json:"room_id,omitempty"`
	TrackId int          `json:"track_id,omitempty"`
	Time    float64      `json:"time,omitempty"`
	Track   *TrackUpload `json:"track,omitempty"`

	client *Client
}

// TrackUpload carries the metadata for an add_track command. The audio
// itself is uploaded out of band; this is the notification that a new
// track exists.
type TrackUpload struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}
