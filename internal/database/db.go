package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/config"
)

type DB struct {
	*sqlx.DB
}

func Connect(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &DB{db}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// EnsureSchema creates the conversations table on first run. The ALTER is
// kept for databases created before the consent column existed.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			message_type VARCHAR(50) NOT NULL,
			content TEXT NOT NULL,
			response TEXT,
			consented BOOLEAN DEFAULT FALSE
		)`,
		`ALTER TABLE conversations ADD COLUMN IF NOT EXISTS consented BOOLEAN DEFAULT FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_time ON conversations (user_id, timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
