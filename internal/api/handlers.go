package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/auxroom/auxroom/internal/database"
	"github.com/auxroom/auxroom/internal/server"
	"github.com/auxroom/auxroom/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type LoginResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

func (s *AuxRoomApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *AuxRoomApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Username:     newUser.Username,
		EmailAddress: newUser.EmailAddress,
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	})
}

func (s *AuxRoomApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.User{
			Id:           user.Id,
			Username:     user.Username,
			EmailAddress: user.EmailAddress,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		})
	case http.MethodPut:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(req.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		dbUser, err := s.db.UpdateAccount(database.UpdateAccountParams{
			UserId:       userId,
			Username:     req.Username,
			PasswordHash: pwdHash,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.User{
			Id:           dbUser.Id,
			Username:     dbUser.Username,
			EmailAddress: dbUser.EmailAddress,
			CreatedAt:    dbUser.CreatedAt,
			UpdatedAt:    dbUser.UpdatedAt,
		})
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *AuxRoomApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *AuxRoomApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	// the token also goes in the body so socket clients can present it
	// as a bearer credential
	s.writeJson(w, http.StatusOK, LoginResponse{
		User: types.User{
			Id:           dbUser.Id,
			Username:     dbUser.Username,
			EmailAddress: dbUser.EmailAddress,
			CreatedAt:    dbUser.CreatedAt,
			UpdatedAt:    dbUser.UpdatedAt,
		},
		Token: token,
	})
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *AuxRoomApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *AuxRoomApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if createRoomReq.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newRoom, err := s.db.CreateRoom(database.CreateRoomParams{
		Name:       createRoomReq.Name,
		AdminId:    userId,
		ExternalId: sid,
	})
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Room{
		Id:         newRoom.Id,
		ExternalId: newRoom.ExternalId,
		Name:       newRoom.Name,
		AdminId:    newRoom.AdminId,
		CreatedAt:  newRoom.CreatedAt,
		UpdatedAt:  newRoom.UpdatedAt,
	})
}

func (s *AuxRoomApp) getRoom(w http.ResponseWriter, r *http.Request) {
	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomWithMembers, err := s.db.GetRoomWithMembers(dbRoom.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members := make([]types.User, len(roomWithMembers.Members))
	for i, m := range roomWithMembers.Members {
		members[i] = types.User{Id: m.AccountId, Username: m.Username}
	}

	s.writeJson(w, http.StatusOK, types.Room{
		Id:         dbRoom.Id,
		ExternalId: dbRoom.ExternalId,
		Name:       dbRoom.Name,
		AdminId:    dbRoom.AdminId,
		Members:    members,
		CreatedAt:  dbRoom.CreatedAt,
		UpdatedAt:  dbRoom.UpdatedAt,
	})
}

func (s *AuxRoomApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if dbRoom.AdminId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteRoom(dbRoom.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// unload the live room, if any, so connected clients are detached
	s.ss.RmRoomChan <- dbRoom.ExternalId

	w.WriteHeader(http.StatusNoContent)
}

func (s *AuxRoomApp) getTracks(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("room_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only members see a room's queue
	if !s.db.MembershipExists(userId, dbRoom.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTracks, err := s.db.ListTracksByRoomId(dbRoom.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tracks := make([]types.Track, len(dbTracks))
	for i, t := range dbTracks {
		tracks[i] = types.Track{
			Id:         t.Id,
			RoomId:     dbRoom.ExternalId,
			UploaderId: t.UploaderId,
			Title:      t.Title,
			Artist:     t.Artist,
			Duration:   t.Duration,
			VoteScore:  t.VoteScore,
			CreatedAt:  t.CreatedAt,
		}
	}

	s.writeJson(w, http.StatusOK, server.OrderTracks(tracks))
}
