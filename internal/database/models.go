package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id         int
	ExternalId string
	Name       string
	AdminId    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Members    []Member
}

type Member struct {
	Id        int
	AccountId int
	RoomId    int
	Username  string
	CreatedAt time.Time
}

type Track struct {
	Id         int
	RoomId     int
	UploaderId int
	Title      string
	Artist     string
	Duration   float64
	VoteScore  int
	CreatedAt  time.Time
}

type Vote struct {
	TrackId   int
	AccountId int
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name       string `json:"name"`
	AdminId    int    `json:"-"`
	ExternalId string `json:"external_id"`
}

type CreateTrackParams struct {
	RoomId     int
	UploaderId int
	Title      string
	Artist     string
	Duration   float64
}
