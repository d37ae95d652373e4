package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/AnshRaj112/salvioris-chat/pkg/logger"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL and ensures the chat tables exist.
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	logger.L().Info("connected to PostgreSQL")
	return initTables()
}

// initTables creates the user tables if they don't exist. Accounts are
// username + password only; messages live in MongoDB.
func initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(20) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			bio TEXT,
			avatar_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	logger.L().Info("PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection.
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
