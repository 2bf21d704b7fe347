package database

import (
	"database/sql"
	"embed"
	"strings"
)

//go:embed schema.sql
var embeddedSchema embed.FS

type PgAuxRoomRepository struct {
	conn *sql.DB
}

func NewPgAuxRoomRepository(dsn string) (*PgAuxRoomRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgAuxRoomRepository{conn: db}, nil
}

func (db *PgAuxRoomRepository) Ping() error {
	return db.conn.Ping()
}

// InitSchema applies the embedded schema. Statements are idempotent
// (CREATE TABLE IF NOT EXISTS), so this is safe on every startup.
func (db *PgAuxRoomRepository) InitSchema() error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(strings.TrimSpace(string(b)))
	return err
}

func (db *PgAuxRoomRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
