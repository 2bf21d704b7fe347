package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func (db *PgAuxRoomRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email, created_at",
		accountParams.Username,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgAuxRoomRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, created_at, updated_at",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgAuxRoomRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgAuxRoomRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgAuxRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		"INSERT INTO rooms (external_id, name, admin_id, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, external_id, name, admin_id, created_at",
		params.ExternalId,
		params.Name,
		params.AdminId,
		time.Now().UTC(),
	)

	var room Room
	if err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.AdminId,
		&room.CreatedAt,
	); err != nil {
		return Room{}, err
	}

	// the administrator is always a member of their own room
	if _, err := tx.Exec(
		"INSERT INTO room_members (account_id, room_id, created_at) VALUES ($1, $2, $3)",
		params.AdminId,
		room.Id,
		time.Now().UTC(),
	); err != nil {
		return Room{}, err
	}

	return room, tx.Commit()
}

func (db *PgAuxRoomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, admin_id, created_at, updated_at FROM rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.AdminId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgAuxRoomRepository) GetRoomWithMembers(roomId int) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, admin_id, created_at, updated_at FROM rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	if err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.AdminId,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	members, err := db.GetMembersByRoomId(roomId)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	room.Members = members

	return &room, nil
}

func (db *PgAuxRoomRepository) DeleteRoom(id int) error {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgAuxRoomRepository) CreateMembership(accountId, roomId int) (Member, error) {
	row := db.conn.QueryRow(
		"INSERT INTO room_members (account_id, room_id, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, account_id, room_id, created_at",
		accountId,
		roomId,
		time.Now().UTC(),
	)

	var m Member
	if err := row.Scan(
		&m.Id,
		&m.AccountId,
		&m.RoomId,
		&m.CreatedAt,
	); err != nil {
		return Member{}, err
	}

	usernameRow := db.conn.QueryRow("SELECT username FROM accounts WHERE id = $1", accountId)
	if err := usernameRow.Scan(&m.Username); err != nil {
		return Member{}, err
	}

	return m, nil
}

func (db *PgAuxRoomRepository) MembershipExists(accountId, roomId int) bool {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM room_members WHERE account_id = $1 AND room_id = $2)",
		accountId,
		roomId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false
	}

	return exists
}

func (db *PgAuxRoomRepository) DeleteMembership(accountId, roomId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM room_members WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgAuxRoomRepository) GetMembersByRoomId(roomId int) ([]Member, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.account_id, m.room_id, m.created_at, a.username "+
			"FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 ORDER BY m.created_at",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Id, &m.AccountId, &m.RoomId, &m.CreatedAt, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (db *PgAuxRoomRepository) CreateTrack(params CreateTrackParams) (Track, error) {
	row := db.conn.QueryRow(
		"INSERT INTO tracks (room_id, uploader_id, title, artist, duration, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, room_id, uploader_id, title, artist, duration, vote_score, created_at",
		params.RoomId,
		params.UploaderId,
		params.Title,
		params.Artist,
		params.Duration,
		time.Now().UTC(),
	)

	return scanTrack(row)
}

func (db *PgAuxRoomRepository) ListTracksByRoomId(roomId int) ([]Track, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, uploader_id, title, artist, duration, vote_score, created_at "+
			"FROM tracks WHERE room_id = $1 ORDER BY created_at",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.Id, &t.RoomId, &t.UploaderId, &t.Title, &t.Artist,
			&t.Duration, &t.VoteScore, &t.CreatedAt); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// AddVote inserts the vote row and bumps the track's cached score in one
// transaction so the cache can never drift from the vote rows.
func (db *PgAuxRoomRepository) AddVote(trackId, accountId int) (Track, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Track{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO votes (track_id, account_id, created_at) VALUES ($1, $2, $3)",
		trackId,
		accountId,
		time.Now().UTC(),
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Track{}, ErrDuplicateVote
		}
		return Track{}, err
	}

	row := tx.QueryRow(
		"UPDATE tracks SET vote_score = vote_score + 1 WHERE id = $1 "+
			"RETURNING id, room_id, uploader_id, title, artist, duration, vote_score, created_at",
		trackId,
	)

	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Track{}, ErrNotFound
		}
		return Track{}, err
	}

	return t, tx.Commit()
}

// RemoveVote deletes the vote row and decrements the cached score in one
// transaction. Returns ErrNotFound if no such vote exists.
func (db *PgAuxRoomRepository) RemoveVote(trackId, accountId int) (Track, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Track{}, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"DELETE FROM votes WHERE track_id = $1 AND account_id = $2",
		trackId,
		accountId,
	)
	if err != nil {
		return Track{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Track{}, err
	}
	if n == 0 {
		return Track{}, ErrNotFound
	}

	row := tx.QueryRow(
		"UPDATE tracks SET vote_score = vote_score - 1 WHERE id = $1 "+
			"RETURNING id, room_id, uploader_id, title, artist, duration, vote_score, created_at",
		trackId,
	)

	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Track{}, ErrNotFound
		}
		return Track{}, err
	}

	return t, tx.Commit()
}

func scanTrack(row *sql.Row) (Track, error) {
	var t Track
	err := row.Scan(
		&t.Id,
		&t.RoomId,
		&t.UploaderId,
		&t.Title,
		&t.Artist,
		&t.Duration,
		&t.VoteScore,
		&t.CreatedAt,
	)

	return t, err
}
