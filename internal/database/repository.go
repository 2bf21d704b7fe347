package database

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateVote = errors.New("vote already exists")
)

type AuxRoomRepository interface {
	Ping() error
	CreateAccount(accountParams CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	GetRoomWithMembers(roomId int) (*Room, error)
	DeleteRoom(id int) error
	CreateMembership(accountId, roomId int) (Member, error)
	MembershipExists(accountId, roomId int) bool
	DeleteMembership(accountId, roomId int) error
	GetMembersByRoomId(roomId int) ([]Member, error)
	CreateTrack(params CreateTrackParams) (Track, error)
	ListTracksByRoomId(roomId int) ([]Track, error)
	AddVote(trackId, accountId int) (Track, error)
	RemoveVote(trackId, accountId int) (Track, error)
}
