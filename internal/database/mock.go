package database

import (
	"github.com/stretchr/testify/mock"
)

type MockAuxRoomRepository struct {
	mock.Mock
}

func (m *MockAuxRoomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockAuxRoomRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	args := m.Called(accountParams)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAuxRoomRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAuxRoomRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAuxRoomRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAuxRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAuxRoomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAuxRoomRepository) GetRoomWithMembers(roomId int) (*Room, error) {
	args := m.Called(roomId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockAuxRoomRepository) DeleteRoom(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockAuxRoomRepository) CreateMembership(accountId, roomId int) (Member, error) {
	args := m.Called(accountId, roomId)
	return args.Get(0).(Member), args.Error(1)
}
func (m *MockAuxRoomRepository) MembershipExists(accountId, roomId int) bool {
	args := m.Called(accountId, roomId)
	return args.Bool(0)
}
func (m *MockAuxRoomRepository) DeleteMembership(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockAuxRoomRepository) GetMembersByRoomId(roomId int) ([]Member, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Member), args.Error(1)
}
func (m *MockAuxRoomRepository) CreateTrack(params CreateTrackParams) (Track, error) {
	args := m.Called(params)
	return args.Get(0).(Track), args.Error(1)
}
func (m *MockAuxRoomRepository) ListTracksByRoomId(roomId int) ([]Track, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Track), args.Error(1)
}
func (m *MockAuxRoomRepository) AddVote(trackId, accountId int) (Track, error) {
	args := m.Called(trackId, accountId)
	return args.Get(0).(Track), args.Error(1)
}
func (m *MockAuxRoomRepository) RemoveVote(trackId, accountId int) (Track, error) {
	args := m.Called(trackId, accountId)
	return args.Get(0).(Track), args.Error(1)
}
